package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListParams(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/assets", nil)
		params := parseListParams(req)
		assert.Equal(t, 50, params.limit)
		assert.Equal(t, 0, params.offset)
		assert.Equal(t, "", params.q)
		assert.Equal(t, "", params.sort)
	})

	t.Run("Caps limit at 200", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/assets?limit=1000", nil)
		params := parseListParams(req)
		assert.Equal(t, 200, params.limit)
	})

	t.Run("Ignores invalid values", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/assets?limit=abc&offset=-3", nil)
		params := parseListParams(req)
		assert.Equal(t, 50, params.limit)
		assert.Equal(t, 0, params.offset)
	})

	t.Run("Trims q and sort", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/assets?q=%20cisco%20&sort=%20-name%20", nil)
		params := parseListParams(req)
		assert.Equal(t, "cisco", params.q)
		assert.Equal(t, "-name", params.sort)
	})
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{
		"id":     "a.id",
		"name":   "a.name",
		"serial": "a.serial",
	}

	t.Run("Default", func(t *testing.T) {
		assert.Equal(t, " ORDER BY a.id ASC", buildOrderBy("", allowed))
	})

	t.Run("Single ascending", func(t *testing.T) {
		assert.Equal(t, " ORDER BY a.name ASC", buildOrderBy("name", allowed))
	})

	t.Run("Descending with multiple keys", func(t *testing.T) {
		assert.Equal(t, " ORDER BY a.name DESC, a.serial ASC", buildOrderBy("-name,serial", allowed))
	})

	t.Run("Unknown keys fall back to default", func(t *testing.T) {
		assert.Equal(t, " ORDER BY a.id ASC", buildOrderBy("drop table", allowed))
	})

	t.Run("Unknown keys are skipped", func(t *testing.T) {
		assert.Equal(t, " ORDER BY a.serial ASC", buildOrderBy("bogus,serial", allowed))
	})
}

func TestSendListResponse(t *testing.T) {
	w := httptest.NewRecorder()
	items := []interface{}{
		map[string]string{"name": "one"},
		map[string]string{"name": "two"},
	}
	sendListResponse(w, items, 17, listParams{limit: 2, offset: 4})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Data []map[string]string `json:"data"`
		Page map[string]int      `json:"page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 17, resp.Page["total"])
	assert.Equal(t, 2, resp.Page["limit"])
	assert.Equal(t, 4, resp.Page["offset"])
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(nil))
	empty := "   "
	assert.Nil(t, nullIfEmpty(&empty))
	val := "x"
	assert.Equal(t, "x", nullIfEmpty(&val))
}

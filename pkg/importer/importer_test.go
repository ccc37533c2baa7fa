package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHeader(t *testing.T) {
	t.Run("Maps known columns, ignores unknown", func(t *testing.T) {
		columns, err := mapHeader([]string{"Manufacturer", " sn_original ", "internal_note", "contract_price"})
		require.NoError(t, err)
		assert.Equal(t, 0, columns["manufacturer"])
		assert.Equal(t, 1, columns["sn_original"])
		assert.Equal(t, 3, columns["contract_price"])
		_, ok := columns["internal_note"]
		assert.False(t, ok)
	})

	t.Run("Requires sn_original", func(t *testing.T) {
		_, err := mapHeader([]string{"manufacturer", "quantity"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sn_original")
	})
}

func TestParseRow(t *testing.T) {
	columns, err := mapHeader([]string{
		"manufacturer", "part_nmr", "quantity", "contract_price",
		"sn_original", "sn_actual", "service_from", "service_to", "service_price",
	})
	require.NoError(t, err)

	t.Run("Full row", func(t *testing.T) {
		row, err := parseRow([]string{
			"Cisco", "PN-1", "2", "1 500,50", "SN-1", "SN-1-R", "01.01.2025", "31.12.2025", "99.90",
		}, columns)
		require.NoError(t, err)
		assert.Equal(t, "Cisco", row.vendor)
		assert.Equal(t, "SN-1", row.serial)
		assert.Equal(t, "SN-1-R", row.serialActual)
		require.NotNil(t, row.quantity)
		assert.Equal(t, 2, *row.quantity)
		require.NotNil(t, row.price)
		assert.Equal(t, "1500.5", row.price.String())
		require.NotNil(t, row.serviceFrom)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *row.serviceFrom)
		assert.True(t, row.hasService())
	})

	t.Run("Serial actual defaults to serial", func(t *testing.T) {
		row, err := parseRow([]string{"", "", "", "", "SN-2", "", "", "", ""}, columns)
		require.NoError(t, err)
		assert.Equal(t, "SN-2", row.serialActual)
		assert.False(t, row.hasService())
	})

	t.Run("Missing serial", func(t *testing.T) {
		_, err := parseRow([]string{"Cisco", "", "", "", "", "", "", "", ""}, columns)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sn_original is required")
	})

	t.Run("Bad quantity", func(t *testing.T) {
		_, err := parseRow([]string{"", "", "many", "", "SN-3", "", "", "", ""}, columns)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid quantity")
	})

	t.Run("Negative price", func(t *testing.T) {
		_, err := parseRow([]string{"", "", "", "-5", "SN-4", "", "", "", ""}, columns)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid contract_price")
	})

	t.Run("Bad date format", func(t *testing.T) {
		_, err := parseRow([]string{"", "", "", "", "SN-5", "", "2025-01-01", "", ""}, columns)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid service_from")
	})

	t.Run("Service dates out of order", func(t *testing.T) {
		_, err := parseRow([]string{"", "", "", "", "SN-6", "", "31.12.2025", "01.01.2025", ""}, columns)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service_from cannot be after service_to")
	})
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500.00", "1500.00"},
		{"1 500,50", "1500.50"},
		{"1,500.00", "1500.00"},
		{"99,9", "99.9"},
		{"1 234 567", "1234567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePrice(tt.in), "input %q", tt.in)
	}
}

func TestReadRecordsCSV(t *testing.T) {
	input := "sn_original,quantity\nSN-1, 2\nSN-2,3\n"
	records, err := readRecords(strings.NewReader(input), "csv")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"SN-1", "2"}, records[1])
}

func TestReadRecordsUnsupportedFormat(t *testing.T) {
	_, err := readRecords(strings.NewReader("x"), "ods")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestBlankRecord(t *testing.T) {
	assert.True(t, blankRecord([]string{"", "  ", ""}))
	assert.False(t, blankRecord([]string{"", "x"}))
}

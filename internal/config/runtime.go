package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StatusEntry is the presentation of one external-inventory status code.
type StatusEntry struct {
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// Runtime holds the operator-tunable settings read from a YAML file. All
// fields have safe defaults so a missing file is never an error.
type Runtime struct {
	ProbeRecentDays int                    `yaml:"probe_recent_days"`
	StatusConfig    map[string]StatusEntry `yaml:"external_inventory_status_config"`
	TooltipTemplate string                 `yaml:"external_inventory_tooltip_template"`

	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DefaultRuntime returns the built-in runtime settings.
func DefaultRuntime() *Runtime {
	return &Runtime{
		ProbeRecentDays: 7,
		StatusConfig:    map[string]StatusEntry{},
		TooltipTemplate: "",
		RateLimitPerSec: 20,
		RateLimitBurst:  40,
	}
}

// LoadRuntime reads the runtime settings from path. An empty path yields the
// defaults; a present but unreadable or malformed file is an error.
func LoadRuntime(path string) (*Runtime, error) {
	rt := DefaultRuntime()
	if path == "" {
		return rt, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open runtime config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(rt); err != nil {
		return nil, fmt.Errorf("parse runtime config: %w", err)
	}

	if rt.ProbeRecentDays <= 0 {
		rt.ProbeRecentDays = 7
	}
	if rt.StatusConfig == nil {
		rt.StatusConfig = map[string]StatusEntry{}
	}
	if rt.RateLimitPerSec <= 0 {
		rt.RateLimitPerSec = 20
	}
	if rt.RateLimitBurst <= 0 {
		rt.RateLimitBurst = 40
	}
	return rt, nil
}

// StatusDisplay resolves an external status code against the configured map.
// Unknown codes fall back to the code itself with the "secondary" color.
func (r *Runtime) StatusDisplay(code string) (label, color string) {
	if e, ok := r.StatusConfig[code]; ok {
		return e.Label, e.Color
	}
	return code, "secondary"
}

// Tooltip renders the configured tooltip template for a status code. The
// template may reference {code}, {label} and {color}. An empty template
// renders an empty tooltip.
func (r *Runtime) Tooltip(code string) string {
	if r.TooltipTemplate == "" {
		return ""
	}
	label, color := r.StatusDisplay(code)
	s := strings.ReplaceAll(r.TooltipTemplate, "{code}", code)
	s = strings.ReplaceAll(s, "{label}", label)
	s = strings.ReplaceAll(s, "{color}", color)
	return s
}

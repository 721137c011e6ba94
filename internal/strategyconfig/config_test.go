package strategyconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default profile failed validation: %v", err)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
volume_ratio:
  min: 3.0
  require_prior_pattern: false
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Ratio.Min != 3.0 {
		t.Errorf("Ratio.Min = %v, want 3.0", cfg.Ratio.Min)
	}
	if cfg.Ratio.RequirePriorPattern {
		t.Error("Ratio.RequirePriorPattern = true, want false")
	}

	// untouched sections keep defaults
	if cfg.Screening.KDJWindow != 9 {
		t.Errorf("Screening.KDJWindow = %d, want 9", cfg.Screening.KDJWindow)
	}
	if cfg.Entry.OrderCash != 20000.0 {
		t.Errorf("Entry.OrderCash = %v, want 20000", cfg.Entry.OrderCash)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
screening:
  kdj_windw: 9
`))
	if err == nil {
		t.Fatal("Parse() accepted an unknown key")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero tick size",
			mutate: func(c *Config) { c.Meta.TickSize = 0 },
			want:   "tick_size",
		},
		{
			name:   "bad time format",
			mutate: func(c *Config) { c.Exit.StopCheckTime = "2:45pm" },
			want:   "HH:MM",
		},
		{
			name:   "empty ratio window",
			mutate: func(c *Config) { c.Ratio.WindowEnd = "09:30" },
			want:   "window is empty",
		},
		{
			name:   "inverted pullback range",
			mutate: func(c *Config) { c.Pattern.PullbackMaxBars = 0 },
			want:   "pullback bar range",
		},
		{
			name:   "tp2 below tp1",
			mutate: func(c *Config) { c.Exit.TakeProfit2 = 0.01 },
			want:   "take-profit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("entry:\n  order_cash: 50000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Entry.OrderCash != 50000 {
		t.Errorf("Entry.OrderCash = %v, want 50000", cfg.Entry.OrderCash)
	}
}

func TestHashIsStable(t *testing.T) {
	a, err := Default().Hash()
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := Default().Hash()
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if a != b {
		t.Errorf("hash not stable: %s vs %s", a, b)
	}

	changed := Default()
	changed.Ratio.Min = 6.0
	c, err := changed.Hash()
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if c == a {
		t.Error("hash unchanged after parameter change")
	}
}

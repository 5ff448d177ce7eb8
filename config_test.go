package veil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig(t *testing.T) {
	doc := `
[[env.APP_ENV]]
values = ["dev", "qa"]
redact = false

[[env.APP_ENV]]
values = ["production"]
redact = true

[fallback]
redact = true
`

	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}

	if cfg.Fallback != FallbackRedact {
		t.Errorf("Fallback = %v, want redact", cfg.Fallback)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("rule count = %d, want 2", len(cfg.Rules))
	}

	first := cfg.Rules[0]
	if first.Variable != "APP_ENV" || first.Redact {
		t.Errorf("rule 0 = %+v, want APP_ENV dev/qa redact=false", first)
	}
	if len(first.Values) != 2 || first.Values[0] != "dev" || first.Values[1] != "qa" {
		t.Errorf("rule 0 values = %v, want [dev qa]", first.Values)
	}
	if !cfg.Rules[1].Redact {
		t.Errorf("rule 1 = %+v, want redact=true", cfg.Rules[1])
	}
}

func TestParseConfigPreservesFileOrder(t *testing.T) {
	// Blocks for different variables interleave; rule order must follow the
	// document, not group by variable.
	doc := `
[[env.A]]
values = ["1"]
redact = false

[[env.B]]
values = ["2"]
redact = true

[[env.A]]
values = ["3"]
redact = true

[fallback]
redact = true
`

	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}

	want := []struct {
		variable string
		value    string
	}{
		{"A", "1"},
		{"B", "2"},
		{"A", "3"},
	}
	if len(cfg.Rules) != len(want) {
		t.Fatalf("rule count = %d, want %d", len(cfg.Rules), len(want))
	}
	for i, w := range want {
		r := cfg.Rules[i]
		if r.Variable != w.variable || r.Values[0] != w.value {
			t.Errorf("rule %d = %s=%v, want %s=%s", i, r.Variable, r.Values, w.variable, w.value)
		}
	}
}

func TestParseConfigFallbackForms(t *testing.T) {
	tests := []struct {
		name   string
		redact string
		want   FallbackPolicy
	}{
		{"true redacts", "true", FallbackRedact},
		{"false allows", "false", FallbackAllow},
		{"panic aborts", `"panic"`, FallbackAbort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "[fallback]\nredact = " + tt.redact + "\n"
			cfg, err := ParseConfig([]byte(doc))
			if err != nil {
				t.Fatalf("ParseConfig() error: %v", err)
			}
			if cfg.Fallback != tt.want {
				t.Errorf("Fallback = %v, want %v", cfg.Fallback, tt.want)
			}
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"missing fallback",
			"[[env.APP_ENV]]\nvalues = [\"dev\"]\nredact = false\n",
		},
		{
			"bad fallback string",
			"[fallback]\nredact = \"sometimes\"\n",
		},
		{
			"fallback wrong type",
			"[fallback]\nredact = 1\n",
		},
		{
			"unknown key",
			"[fallback]\nredact = true\nverbose = true\n",
		},
		{
			"empty values",
			"[[env.APP_ENV]]\nvalues = []\nredact = false\n\n[fallback]\nredact = true\n",
		},
		{
			"duplicate pair",
			"[[env.APP_ENV]]\nvalues = [\"dev\"]\nredact = false\n\n[[env.APP_ENV]]\nvalues = [\"dev\"]\nredact = true\n\n[fallback]\nredact = true\n",
		},
		{
			"not toml",
			"{]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ParseConfig() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".veil.toml")
	doc := "[fallback]\nredact = false\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Fallback != FallbackAllow {
		t.Errorf("Fallback = %v, want allow", cfg.Fallback)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig() = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigDrivesToggle(t *testing.T) {
	t.Setenv("APP_ENV", "qa")

	doc := `
[[env.APP_ENV]]
values = ["dev", "qa"]
redact = false

[fallback]
redact = true
`
	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}

	tg := NewToggle(cfg)
	active, err := tg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if active {
		t.Error("APP_ENV=qa should disable redaction via the parsed config")
	}
}

package veil

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Toggle configuration file format:
//
//	[[env.APP_ENV]]
//	values = ["dev", "qa"]
//	redact = false
//
//	[[env.APP_ENV]]
//	values = ["production"]
//	redact = true
//
//	[fallback]
//	redact = true   # or false, or "panic"
//
// Blocks are evaluated in file order, across variables; the first match wins.
// The fallback section is required. Unknown keys, empty value sets, duplicate
// variable/value pairs, and fallback strings other than "panic" are rejected.

type configDoc struct {
	Env      map[string][]configRule `toml:"env"`
	Fallback configFallback          `toml:"fallback"`
}

type configRule struct {
	Values []string `toml:"values"`
	Redact bool     `toml:"redact"`
}

type configFallback struct {
	Redact fallbackValue `toml:"redact"`
}

// fallbackValue decodes `redact = <bool | "panic">`.
type fallbackValue struct {
	policy FallbackPolicy
}

func (f *fallbackValue) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case bool:
		if val {
			f.policy = FallbackRedact
		} else {
			f.policy = FallbackAllow
		}
		return nil
	case string:
		if val != "panic" {
			return fmt.Errorf("%w: fallback redaction behavior must be true, false, or \"panic\", got %q", ErrInvalidConfig, val)
		}
		f.policy = FallbackAbort
		return nil
	default:
		return fmt.Errorf("%w: fallback redact must be a boolean or \"panic\"", ErrInvalidConfig)
	}
}

// ParseConfig parses a toggle configuration document into a ToggleConfig,
// preserving the file order of the [[env.<VAR>]] blocks.
func ParseConfig(data []byte) (ToggleConfig, error) {
	var doc configDoc
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return ToggleConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return ToggleConfig{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}
	if !md.IsDefined("fallback", "redact") {
		return ToggleConfig{}, fmt.Errorf("%w: missing fallback section", ErrInvalidConfig)
	}

	cfg := ToggleConfig{Fallback: doc.Fallback.Redact.policy}

	// Rebuild file order from the decode metadata: each [[env.VAR]] header
	// appears as its own env.VAR key, in document order.
	seen := make(map[string]int, len(doc.Env))
	pairs := make(map[[2]string]bool)
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "env" {
			continue
		}
		variable := key[1]
		idx := seen[variable]
		seen[variable]++

		rules := doc.Env[variable]
		if idx >= len(rules) {
			continue
		}
		rule := rules[idx]

		if len(rule.Values) == 0 {
			return ToggleConfig{}, fmt.Errorf("%w: environment variable %q has an empty configuration", ErrInvalidConfig, variable)
		}
		for _, v := range rule.Values {
			pair := [2]string{variable, v}
			if pairs[pair] {
				return ToggleConfig{}, fmt.Errorf("%w: duplicate variable/value pair %s=%q", ErrInvalidConfig, variable, v)
			}
			pairs[pair] = true
		}

		cfg.Rules = append(cfg.Rules, ToggleRule{
			Variable: variable,
			Values:   rule.Values,
			Redact:   rule.Redact,
		})
	}

	return cfg, nil
}

// LoadConfig reads and parses a toggle configuration file, conventionally
// named .veil.toml.
func LoadConfig(path string) (ToggleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ToggleConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return ParseConfig(data)
}

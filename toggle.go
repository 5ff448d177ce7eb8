package veil

import (
	"os"
	"sync"
	"sync/atomic"
)

// DisableEnv is the process environment flag that forces redaction off.
// Presence of the variable with any value disables redaction for the process
// lifetime; it is checked exactly once, at toggle resolution, and later
// changes are never observed.
const DisableEnv = "VEIL_DISABLE_REDACTION"

// FallbackPolicy decides the toggle outcome when no rule matches.
type FallbackPolicy int

const (
	// FallbackRedact redacts when no rule matches. This is the zero value:
	// an unconfigured toggle fails closed.
	FallbackRedact FallbackPolicy = iota

	// FallbackAllow renders everything unredacted when no rule matches.
	FallbackAllow

	// FallbackAbort treats an unmatched configuration as an unrecoverable
	// error: the first render fails with ErrToggleAborted and every
	// subsequent render observes the same error. For deployments that
	// require an explicit redaction stance.
	FallbackAbort
)

// String returns the config token for the policy.
func (f FallbackPolicy) String() string {
	switch f {
	case FallbackRedact:
		return "redact"
	case FallbackAllow:
		return "allow"
	case FallbackAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// ToggleRule maps an environment variable to a redaction outcome. The rule
// matches when the variable is set and its value is a member of Values.
type ToggleRule struct {
	// Variable is the environment variable name.
	Variable string

	// Values are the recognized values that trigger this rule.
	Values []string

	// Redact is the outcome when the rule matches: true redacts, false
	// renders plaintext.
	Redact bool
}

// matches reports whether the rule matches the given variable value.
func (r ToggleRule) matches(value string) bool {
	for _, v := range r.Values {
		if v == value {
			return true
		}
	}
	return false
}

// ToggleConfig is an ordered rule list plus a fallback. Rule order is
// significant: the first matching rule wins, not the best match. The zero
// value has no rules and fails closed (FallbackRedact).
type ToggleConfig struct {
	Rules    []ToggleRule
	Fallback FallbackPolicy
}

// Toggle is the process-wide decision of whether redaction is active.
//
// The state machine has three states: uninitialized, resolved, and aborted.
// The transition out of uninitialized fires exactly once, on the first call
// to Resolve, and is permanent: once resolved, every caller observes the same
// memoized outcome with no further environment access. Mutating the
// environment after resolution has no effect. This is a deliberate security
// property: the active policy cannot be flipped mid-process, which would
// otherwise open a time-of-check/time-of-use bypass.
//
// Package-level renders use a single process-wide toggle; independent Toggle
// values exist so the resolution logic itself is testable.
type Toggle struct {
	mu       sync.Mutex
	config   ToggleConfig
	once     sync.Once
	resolved atomic.Bool
	active   bool
	err      error
}

// NewToggle returns an unresolved toggle with the given configuration.
func NewToggle(cfg ToggleConfig) *Toggle {
	return &Toggle{config: cfg}
}

// Configure replaces the toggle's configuration. It fails with
// ErrToggleResolved once the toggle has resolved: the active policy is
// permanent for the process lifetime.
func (t *Toggle) Configure(cfg ToggleConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resolved.Load() {
		return &ToggleError{Err: ErrToggleResolved}
	}
	t.config = cfg
	return nil
}

// Resolve returns the memoized redaction state, computing it on first call.
//
// Resolution order:
//  1. If DisableEnv is present, redaction is off, regardless of config.
//  2. Otherwise the first rule whose variable's current value is in its
//     value set decides.
//  3. Otherwise the fallback applies; FallbackAbort yields a permanent
//     ErrToggleAborted.
//
// Concurrent first callers block until one resolution completes; afterwards
// reads are lock-free.
func (t *Toggle) Resolve() (bool, error) {
	t.once.Do(t.evaluate)
	return t.active, t.err
}

// Disable forces redaction off before the toggle resolves, overriding the
// configuration and the environment. Call it at the top of main. Once the
// toggle has resolved (including by an earlier Disable), it fails with
// ErrToggleResolved.
func (t *Toggle) Disable() error {
	applied := false
	t.once.Do(func() {
		t.resolved.Store(true)
		t.active = false
		applied = true
		emitToggleResolved(false, toggleSourceOverride, "", nil)
	})
	if !applied {
		return &ToggleError{Err: ErrToggleResolved}
	}
	return nil
}

// evaluate runs inside the once guard.
func (t *Toggle) evaluate() {
	t.resolved.Store(true)

	t.mu.Lock()
	cfg := t.config
	t.mu.Unlock()

	if _, ok := os.LookupEnv(DisableEnv); ok {
		t.active = false
		emitToggleResolved(false, toggleSourceDisabled, DisableEnv, nil)
		return
	}

	for _, rule := range cfg.Rules {
		value, ok := os.LookupEnv(rule.Variable)
		if !ok || !rule.matches(value) {
			continue
		}
		t.active = rule.Redact
		emitToggleResolved(t.active, toggleSourceRule, rule.Variable, nil)
		return
	}

	switch cfg.Fallback {
	case FallbackAllow:
		t.active = false
	case FallbackAbort:
		t.active = true
		t.err = &ToggleError{Err: ErrToggleAborted}
	default:
		t.active = true
	}
	emitToggleResolved(t.active, toggleSourceFallback, "", t.err)
}

// defaultToggle is the process-wide toggle used by Render and Wrap.
var defaultToggle = NewToggle(ToggleConfig{})

// Configure sets the process-wide toggle configuration. Call it before the
// first render; it fails with ErrToggleResolved afterwards. Use ParseConfig
// or LoadConfig to obtain a ToggleConfig from a configuration file.
func Configure(cfg ToggleConfig) error {
	return defaultToggle.Configure(cfg)
}

// Disable forces redaction off process-wide before the first render,
// overriding the toggle configuration and the environment. It fails with
// ErrToggleResolved once the toggle has resolved.
func Disable() error {
	return defaultToggle.Disable()
}

// Package veil renders values as debug text with sensitive fields masked.
//
// The package attaches a masking policy to each field of a data shape and
// renders values of that shape as conventional debug representations
// (Name{Field: value, ...}) in which sensitive content is replaced before it
// can reach a log line or trace. Veil only changes how a value is rendered to
// text; it never encrypts, logs, or transmits anything.
//
// # Policies
//
// Each field resolves to exactly one policy:
//
//   - None: render unredacted via the debug formatter
//   - Skip: alias of None, documents intentional exposure
//   - All: mask every alphanumeric character; composites recurse transitively
//   - Partial: expose a small prefix/suffix, mask the middle (length leaks)
//   - Fixed(n): exactly n mask characters, independent of the value
//
// Fields without an explicit policy inherit the shape's default; an absent
// policy never means "unredacted by accident".
//
// # Tag Syntax
//
// Field policies are declared via the `redact` struct tag:
//
//	type Payment struct {
//	    Number string `redact:"partial"`
//	    CVV    string `redact:"fixed=3"`
//	    Name   string `redact:"partial"`
//	    Kind   string `redact:"skip"`
//	}
//
// Modifiers: `with=X` sets the mask character, `text=...` replaces the masked
// portion with a literal string, e.g. `redact:"partial,with=#"`. `partial`
// and `fixed` are mutually incompatible.
//
// # Basic Usage
//
//	out, err := veil.Render(payment)
//	// Payment{Number: "411**********111", CVV: "***", Name: "Ja** *oe", Kind: "credit"}
//
//	log.Printf("declined: %s", veil.Wrap(payment))
//
// Shapes register lazily on first render; use Register for explicit control:
//
//	veil.Register[Payment](
//	    veil.WithDefault(veil.All()),
//	    veil.WithField("Kind", veil.Skip()),
//	)
//
// Tagged unions register a closed variant set behind an interface type, with
// an independent policy for each variant's name:
//
//	veil.RegisterUnion[PaymentMethod](
//	    veil.NewVariant[Card]("Card", veil.None()),
//	    veil.NewVariant[BankTransfer]("BankTransfer", veil.Partial()),
//	)
//
// # Toggle
//
// Whether redaction is active is decided once per process, on the first
// render, from the environment:
//
//  1. If VEIL_DISABLE_REDACTION is set (any value), redaction is off.
//  2. Otherwise the first matching Configure rule decides.
//  3. Otherwise the fallback applies; the default fallback redacts.
//
// The decision is memoized for the process lifetime and never re-evaluated,
// even if the environment changes: flipping the policy mid-process would
// open a time-of-check/time-of-use bypass. Configuration comes from
// Configure, or from a .veil.toml file via LoadConfig:
//
//	[[env.APP_ENV]]
//	values = ["dev", "qa"]
//	redact = false
//
//	[fallback]
//	redact = true
//
// A fallback of "panic" makes an unmatched configuration fatal: the first
// render returns ErrToggleAborted, permanently, for deployments that require
// an explicit redaction stance.
package veil

import "fmt"

// Redactable bypasses reflection-based rendering. When redaction is active,
// Render uses the type's own Redact output instead of walking its shape; the
// implementation is responsible for masking everything sensitive. When
// redaction is inactive the type renders like any other value.
type Redactable interface {
	// Redact returns the value formatted with all sensitive data masked.
	Redact() string
}

// Wrap adapts a value for fmt-driven call sites: the returned Stringer
// renders v through Render on each String call.
//
// String panics on render failure. A toggle abort means the process has no
// redaction stance, and a silent fallback string would let the log line
// through anyway; panicking keeps the failure fail-closed at call sites that
// cannot check an error.
func Wrap(v any) fmt.Stringer {
	return wrapped{v: v}
}

type wrapped struct {
	v any
}

func (w wrapped) String() string {
	out, err := Render(w.v)
	if err != nil {
		panic(err)
	}
	return out
}

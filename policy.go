package veil

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PolicyKind selects a masking strategy for a field.
type PolicyKind int

const (
	// PolicyInherit is the zero value. A field with an Inherit policy uses
	// its shape's default policy; a shape whose default is Inherit exposes
	// untagged fields unmasked (equivalent to None).
	PolicyInherit PolicyKind = iota

	// PolicyNone renders the field unmasked via the debug formatter.
	PolicyNone

	// PolicySkip renders the field unmasked, like None. Use it to document
	// that a field inside an otherwise-masked shape is exposed on purpose.
	PolicySkip

	// PolicyAll masks every alphanumeric character of the field. Composite
	// fields recurse with All applied transitively, overriding the policies
	// their own fields declare.
	PolicyAll

	// PolicyPartial exposes a small prefix and suffix and masks the middle.
	// Output length equals input length; partial masking deliberately leaks
	// length but not content.
	PolicyPartial

	// PolicyFixed replaces the value with exactly Width mask characters,
	// ignoring the value and its length entirely.
	PolicyFixed
)

// String returns the tag token for the kind.
func (k PolicyKind) String() string {
	switch k {
	case PolicyInherit:
		return "inherit"
	case PolicyNone:
		return "none"
	case PolicySkip:
		return "skip"
	case PolicyAll:
		return "all"
	case PolicyPartial:
		return "partial"
	case PolicyFixed:
		return "fixed"
	default:
		return fmt.Sprintf("policy(%d)", int(k))
	}
}

// defaultMaskRune is used when a policy does not override the mask character.
const defaultMaskRune = '*'

// Policy describes how a single field is masked.
//
// The zero value is the Inherit policy. Construct policies with None, Skip,
// All, Partial, and Fixed; customize the mask content with With and WithText.
type Policy struct {
	// Kind selects the masking strategy.
	Kind PolicyKind

	// Width is the output width for Fixed policies. Must be positive.
	Width int

	// Rune is the mask character. Zero means '*'.
	Rune rune

	// Text, when set, replaces the masked portion with a literal string
	// instead of repeated mask characters. For All and Partial the entire
	// value is replaced; for Fixed the first Width characters of Text are
	// used.
	Text string
}

// None returns a policy that renders the field unmasked.
func None() Policy {
	return Policy{Kind: PolicyNone}
}

// Skip returns a policy that renders the field unmasked, documenting
// intentional exposure.
func Skip() Policy {
	return Policy{Kind: PolicySkip}
}

// All returns a policy that fully masks the field.
func All() Policy {
	return Policy{Kind: PolicyAll}
}

// Partial returns a policy that exposes a small prefix and suffix and masks
// the characters between them.
func Partial() Policy {
	return Policy{Kind: PolicyPartial}
}

// Fixed returns a policy that renders exactly width mask characters,
// independent of the value. Width must be positive; Register and Scan reject
// anything else.
func Fixed(width int) Policy {
	return Policy{Kind: PolicyFixed, Width: width}
}

// With returns a copy of the policy using r as the mask character.
func (p Policy) With(r rune) Policy {
	p.Rune = r
	return p
}

// WithText returns a copy of the policy that masks with the literal text s.
func (p Policy) WithText(s string) Policy {
	p.Text = s
	return p
}

// maskRune returns the effective mask character.
func (p Policy) maskRune() rune {
	if p.Rune == 0 {
		return defaultMaskRune
	}
	return p.Rune
}

// masks reports whether the policy transforms content when redaction is
// active.
func (p Policy) masks() bool {
	switch p.Kind {
	case PolicyAll, PolicyPartial, PolicyFixed:
		return true
	default:
		return false
	}
}

// validate checks internal policy consistency independent of the field it is
// attached to.
func (p Policy) validate() error {
	if p.Kind == PolicyFixed && p.Width < 1 {
		return fmt.Errorf("%w: fixed masking width must be greater than zero", ErrInvalidPolicy)
	}
	if p.Rune != 0 && !utf8.ValidRune(p.Rune) {
		return fmt.Errorf("%w: invalid mask character", ErrInvalidPolicy)
	}
	return nil
}

// parsePolicyTag parses the value of a `redact` struct tag into a Policy.
//
// Tokens are comma separated: "", "full" and "all" select All; "partial",
// "skip", "none" and "fixed=N" select their kinds; "with=X" sets the mask
// character and "text=..." the replacement text. Replacement text containing
// commas cannot be expressed in a tag; use Register with WithField instead.
func parsePolicyTag(tag string) (Policy, error) {
	p := All()
	if tag == "" {
		return p, nil
	}

	var sawPartial, sawFixed bool
	for _, tok := range strings.Split(tag, ",") {
		tok = strings.TrimSpace(tok)
		key, val, hasVal := strings.Cut(tok, "=")

		switch key {
		case "", "full", "all":
			p.Kind = PolicyAll
		case "partial":
			p.Kind = PolicyPartial
			sawPartial = true
		case "skip":
			p.Kind = PolicySkip
		case "none":
			p.Kind = PolicyNone
		case "fixed":
			if !hasVal {
				return Policy{}, fmt.Errorf("%w: fixed requires a width, e.g. fixed=6", ErrInvalidPolicy)
			}
			width, err := strconv.Atoi(val)
			if err != nil {
				return Policy{}, fmt.Errorf("%w: invalid fixed width %q", ErrInvalidPolicy, val)
			}
			p.Kind = PolicyFixed
			p.Width = width
			sawFixed = true
		case "with":
			r, size := utf8.DecodeRuneInString(val)
			if r == utf8.RuneError || size != len(val) {
				return Policy{}, fmt.Errorf("%w: with expects a single character, got %q", ErrInvalidPolicy, val)
			}
			p.Rune = r
		case "text":
			p.Text = val
		default:
			return Policy{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidPolicy, tok)
		}
	}

	if sawPartial && sawFixed {
		return Policy{}, fmt.Errorf("%w: partial and fixed are incompatible", ErrInvalidPolicy)
	}
	if err := p.validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

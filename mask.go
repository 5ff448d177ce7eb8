package veil

import (
	"strings"
	"unicode"
)

// Masking primitives. Each is pure and total over valid inputs: one value in,
// one redacted string out. Only alphanumeric characters are ever masked;
// whitespace and punctuation pass through so the masked output keeps the
// visual structure of the original ("4111-1111" masks to "****-****").

const (
	// minPartialChars is the minimum number of alphanumeric characters a
	// value must have before partial masking exposes anything. Shorter
	// values are fully masked: revealing characters of a short value would
	// reveal most of it.
	minPartialChars = 5

	// maxPartialExpose caps how many characters partial masking exposes at
	// each end of the value.
	maxPartialExpose = 3
)

// maskFull masks every alphanumeric character of s with the policy's mask
// character. If the policy carries replacement text, the whole value is
// replaced by that text instead.
func maskFull(s string, p Policy) string {
	if p.Text != "" {
		return p.Text
	}

	mask := p.maskRune()
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isMaskable(r) {
			b.WriteRune(mask)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskPartial exposes a small prefix and suffix of s and masks the
// alphanumeric characters between them. Values with fewer than
// minPartialChars alphanumerics are fully masked instead. The output always
// has the same length as the input; the empty string masks to the empty
// string.
func maskPartial(s string, p Policy) string {
	if p.Text != "" {
		return p.Text
	}

	count := 0
	for _, r := range s {
		if isMaskable(r) {
			count++
		}
	}

	mask := p.maskRune()
	var b strings.Builder
	b.Grow(len(s))

	if count < minPartialChars {
		for _, r := range s {
			if isMaskable(r) {
				b.WriteRune(mask)
			} else {
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	expose := count / 3
	if expose > maxPartialExpose {
		expose = maxPartialExpose
	}

	prefix := expose
	middle := count - expose - expose
	for _, r := range s {
		switch {
		case !isMaskable(r):
			b.WriteRune(r)
		case prefix > 0:
			prefix--
			b.WriteRune(r)
		case middle > 0:
			middle--
			b.WriteRune(mask)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskFixed returns exactly width mask characters, ignoring the value and its
// length entirely. If the policy carries replacement text, the first width
// characters of that text are used instead.
func maskFixed(width int, p Policy) string {
	if p.Text != "" {
		runes := []rune(p.Text)
		if len(runes) > width {
			runes = runes[:width]
		}
		return string(runes)
	}
	return strings.Repeat(string(p.maskRune()), width)
}

// applyPolicy masks already-formatted text according to the policy. Inherit,
// None and Skip pass the text through unchanged.
func applyPolicy(p Policy, text string) string {
	switch p.Kind {
	case PolicyAll:
		return maskFull(text, p)
	case PolicyPartial:
		return maskPartial(text, p)
	case PolicyFixed:
		return maskFixed(p.Width, p)
	default:
		return text
	}
}

// isMaskable reports whether a character carries content worth masking.
func isMaskable(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

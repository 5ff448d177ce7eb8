package veil

import (
	"errors"
	"testing"
)

func TestPolicyConstructors(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		kind   PolicyKind
	}{
		{"none", None(), PolicyNone},
		{"skip", Skip(), PolicySkip},
		{"all", All(), PolicyAll},
		{"partial", Partial(), PolicyPartial},
		{"fixed", Fixed(3), PolicyFixed},
	}

	for _, tt := range tests {
		if tt.policy.Kind != tt.kind {
			t.Errorf("%s: Kind = %v, want %v", tt.name, tt.policy.Kind, tt.kind)
		}
	}

	if Fixed(3).Width != 3 {
		t.Errorf("Fixed(3).Width = %d, want 3", Fixed(3).Width)
	}
}

func TestPolicyModifiers(t *testing.T) {
	p := All().With('#').WithText("[hidden]")
	if p.Rune != '#' {
		t.Errorf("Rune = %q, want '#'", p.Rune)
	}
	if p.Text != "[hidden]" {
		t.Errorf("Text = %q, want %q", p.Text, "[hidden]")
	}
	// Modifiers copy; the original is untouched.
	base := All()
	_ = base.With('#')
	if base.Rune != 0 {
		t.Error("With() mutated the receiver")
	}
}

func TestPolicyMaskRune(t *testing.T) {
	if All().maskRune() != '*' {
		t.Errorf("default mask rune = %q, want '*'", All().maskRune())
	}
	if All().With('x').maskRune() != 'x' {
		t.Errorf("custom mask rune = %q, want 'x'", All().With('x').maskRune())
	}
}

func TestPolicyMasks(t *testing.T) {
	masking := []Policy{All(), Partial(), Fixed(1)}
	for _, p := range masking {
		if !p.masks() {
			t.Errorf("%v.masks() = false, want true", p.Kind)
		}
	}

	passing := []Policy{{}, None(), Skip()}
	for _, p := range passing {
		if p.masks() {
			t.Errorf("%v.masks() = true, want false", p.Kind)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := Fixed(0).validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Fixed(0).validate() = %v, want ErrInvalidPolicy", err)
	}
	if err := Fixed(-1).validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Fixed(-1).validate() = %v, want ErrInvalidPolicy", err)
	}
	if err := Fixed(1).validate(); err != nil {
		t.Errorf("Fixed(1).validate() = %v, want nil", err)
	}
	if err := Partial().validate(); err != nil {
		t.Errorf("Partial().validate() = %v, want nil", err)
	}
}

func TestParsePolicyTag(t *testing.T) {
	tests := []struct {
		tag  string
		want Policy
	}{
		{"", All()},
		{"full", All()},
		{"all", All()},
		{"partial", Partial()},
		{"skip", Skip()},
		{"none", None()},
		{"fixed=6", Fixed(6)},
		{"partial,with=#", Partial().With('#')},
		{"with=-,all", All().With('-')},
		{"text=[hidden]", All().WithText("[hidden]")},
		{"fixed=3,text=xxx", Fixed(3).WithText("xxx")},
	}

	for _, tt := range tests {
		got, err := parsePolicyTag(tt.tag)
		if err != nil {
			t.Errorf("parsePolicyTag(%q) error: %v", tt.tag, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePolicyTag(%q) = %+v, want %+v", tt.tag, got, tt.want)
		}
	}
}

func TestParsePolicyTagErrors(t *testing.T) {
	tags := []string{
		"fixed",         // missing width
		"fixed=0",       // non-positive width
		"fixed=abc",     // not a number
		"bogus",         // unknown modifier
		"partial,fixed=3", // incompatible combination
		"with=ab",       // more than one character
		"with=",         // empty character
	}

	for _, tag := range tags {
		if _, err := parsePolicyTag(tag); !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("parsePolicyTag(%q) = %v, want ErrInvalidPolicy", tag, err)
		}
	}
}

func TestPolicyKindString(t *testing.T) {
	tests := []struct {
		kind PolicyKind
		want string
	}{
		{PolicyInherit, "inherit"},
		{PolicyNone, "none"},
		{PolicySkip, "skip"},
		{PolicyAll, "all"},
		{PolicyPartial, "partial"},
		{PolicyFixed, "fixed"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("PolicyKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

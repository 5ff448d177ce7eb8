package veil

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Render returns the redacted debug representation of v.
//
// The first call in the process resolves the toggle state; every later call
// reads the memoized result. Rendering walks v's shape (registering it from
// `redact` tags on first use), applies each field's policy, and assembles
// Name{Field: value, ...} output. Render never mutates v and is
// deterministic for a fixed value and resolved toggle state.
//
// Render fails only by propagating a toggle abort, an unregistered union
// variant, or a registration error from a lazily scanned type.
func Render(v any) (string, error) {
	return renderWith(defaultToggle, v)
}

// renderWith renders against an explicit toggle.
func renderWith(t *Toggle, v any) (string, error) {
	active, err := t.Resolve()
	if err != nil {
		return "", err
	}

	typeName := fmt.Sprintf("%T", v)
	start := time.Now()
	emitRenderStart(typeName)

	st := &renderState{active: active}
	out, err := st.renderValue(reflect.ValueOf(v), Policy{})
	emitRenderComplete(typeName, time.Since(start), st.masked, err)
	return out, err
}

// renderState carries the resolved toggle and per-render counters.
type renderState struct {
	active bool
	masked int
}

// renderValue renders one value under one resolved policy. Masking changes
// content, never presence: every field appears in the output regardless of
// its policy.
func (st *renderState) renderValue(rv reflect.Value, pol Policy) (string, error) {
	if !rv.IsValid() {
		return "nil", nil
	}

	masking := st.active && pol.masks()

	switch rv.Kind() {
	case reflect.String:
		text := rv.String()
		if masking {
			st.masked++
			text = applyPolicy(pol, text)
		}
		return strconv.Quote(text), nil

	case reflect.Struct:
		return st.renderStruct(rv, pol)

	case reflect.Pointer:
		// nil is rendered plain and never masked: masking "nil" would
		// fabricate content that was not there.
		if rv.IsNil() {
			return "nil", nil
		}
		if masking && rv.Elem().Kind() == reflect.Struct {
			if s, done := st.maskOpaque(rv, pol); done {
				return s, nil
			}
		}
		elem := rv.Elem()
		if elem.Kind() == reflect.Struct {
			s, err := st.renderStruct(elem, pol)
			if err != nil {
				return "", err
			}
			return "&" + s, nil
		}
		return st.renderValue(elem, pol)

	case reflect.Interface:
		if rv.IsNil() {
			return "nil", nil
		}
		if masking {
			if s, done := st.maskOpaque(rv, pol); done {
				return s, nil
			}
		}
		if un, ok := lookupUnion(rv.Type()); ok {
			return st.renderUnion(rv.Elem(), un, pol)
		}
		return st.renderValue(rv.Elem(), pol)

	default:
		text := fmt.Sprint(rv.Interface())
		if masking {
			st.masked++
			text = applyPolicy(pol, text)
		}
		return text, nil
	}
}

// renderStruct renders a struct value via its shape. An All policy recurses
// with All applied transitively, overriding every nested field's own policy;
// Fixed, replacement text, and Partial replace the composite wholesale.
func (st *renderState) renderStruct(rv reflect.Value, pol Policy) (string, error) {
	if st.active && pol.masks() {
		if s, done := st.maskOpaque(rv, pol); done {
			return s, nil
		}
		shape, err := shapeForType(rv.Type())
		if err != nil {
			return "", err
		}
		return st.renderFields(rv, shape, shape.Name, &pol)
	}

	if st.active {
		if r, ok := redactableFor(rv); ok {
			st.masked++
			return r.Redact(), nil
		}
	}

	shape, err := shapeForType(rv.Type())
	if err != nil {
		return "", err
	}
	return st.renderFields(rv, shape, shape.Name, nil)
}

// renderFields assembles the Name{Field: value, ...} body. Field order is
// declaration order; a non-nil forced policy overrides every field's own.
func (st *renderState) renderFields(rv reflect.Value, shape *Shape, displayName string, forced *Policy) (string, error) {
	var b strings.Builder
	b.WriteString(displayName)
	b.WriteByte('{')
	for i := range shape.Fields {
		f := &shape.Fields[i]
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")

		pol := shape.policyFor(f)
		if forced != nil {
			pol = *forced
		}

		s, err := st.renderValue(rv.FieldByIndex(f.index), pol)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// renderUnion renders a union value: the variant name first, masked per the
// variant's own policy (independently of its payload), then the payload via
// its shape.
func (st *renderState) renderUnion(conc reflect.Value, un *Union, pol Policy) (string, error) {
	variant, ok := un.variantFor(conc.Type())
	if !ok {
		return "", newRenderError(ErrUnknownVariant, conc.Type().String())
	}

	payload := conc
	prefix := ""
	if payload.Kind() == reflect.Pointer {
		if payload.IsNil() {
			return "nil", nil
		}
		payload = payload.Elem()
		prefix = "&"
	}

	name := variant.Name
	var forced *Policy
	switch {
	case st.active && pol.masks():
		// Outer All dominates: variant name and every payload field.
		p := pol
		forced = &p
		st.masked++
		name = maskFull(name, pol)
	case st.active && variant.Policy.masks():
		st.masked++
		name = applyPolicy(variant.Policy, name)
	}

	shape, err := shapeForType(variant.typ)
	if err != nil {
		return "", err
	}
	body, err := st.renderFields(payload, shape, name, forced)
	if err != nil {
		return "", err
	}
	return prefix + body, nil
}

// maskOpaque applies policies that replace a composite value wholesale:
// fixed width, replacement text, and partial masking over the type's
// fmt.Stringer projection. Returns done=false when the policy requires
// structural recursion instead.
func (st *renderState) maskOpaque(rv reflect.Value, pol Policy) (string, bool) {
	switch {
	case pol.Kind == PolicyFixed:
		st.masked++
		return maskFixed(pol.Width, pol), true
	case pol.Text != "":
		st.masked++
		return pol.Text, true
	case pol.Kind == PolicyPartial:
		st.masked++
		return maskPartial(stringerText(rv), pol), true
	}
	return "", false
}

// redactableFor returns the value's Redactable implementation, trying the
// addressable form for pointer receivers.
func redactableFor(rv reflect.Value) (Redactable, bool) {
	if r, ok := rv.Interface().(Redactable); ok {
		return r, true
	}
	if rv.CanAddr() {
		if r, ok := rv.Addr().Interface().(Redactable); ok {
			return r, true
		}
	}
	return nil, false
}

// stringerText returns the fmt.Stringer projection of a value, copying to an
// addressable location for pointer receivers when needed. Registration
// guarantees a Stringer exists for every field this is called on.
func stringerText(rv reflect.Value) string {
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	if rv.CanAddr() {
		if s, ok := rv.Addr().Interface().(fmt.Stringer); ok {
			return s.String()
		}
	}
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	if s, ok := p.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(rv.Interface())
}

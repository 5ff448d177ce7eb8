package veil

import (
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the redact tag with sentinel
	sentinel.Tag("redact")
}

// stringerType is the textual projection required for Partial policies on
// composite fields.
var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// fieldKind classifies how a field's value is rendered.
type fieldKind int

const (
	kindText      fieldKind = iota // string
	kindScalar                     // formatted with %v, then masked as text
	kindComposite                  // struct, rendered via its own shape
	kindPointer                    // pointer, dereferenced at render time
	kindInterface                  // interface, dispatched via union or dynamic type
)

// FieldSpec describes one field of a shape: its name (diagnostics only), its
// policy, and how its value type is rendered.
type FieldSpec struct {
	// Name is the field name as it appears in output.
	Name string

	// Policy is the field's masking policy. The zero (Inherit) policy
	// resolves to the shape's default.
	Policy Policy

	typ   reflect.Type
	index []int
	kind  fieldKind
}

// Shape describes how one struct type decomposes into an ordered field list.
// Shapes are constructed once at registration time and are immutable and
// safe for concurrent use thereafter.
type Shape struct {
	// Name is the shape name rendered before the field list.
	Name string

	// Default is applied to fields whose own policy is Inherit. A Default
	// of Inherit exposes such fields unmasked.
	Default Policy

	// Fields in declaration order. Field order is rendering order.
	Fields []FieldSpec

	typ reflect.Type
}

// policyFor resolves a field's effective policy: the field's own policy, the
// shape default, or None. No field is ever left unspecified.
func (s *Shape) policyFor(f *FieldSpec) Policy {
	if f.Policy.Kind != PolicyInherit {
		return f.Policy
	}
	if s.Default.Kind != PolicyInherit {
		return s.Default
	}
	return None()
}

// Variant describes one member of a union: its name, the policy governing
// whether the name itself is masked in output, and its payload type.
type Variant struct {
	// Name is the variant name rendered before the payload.
	Name string

	// Policy masks the variant name itself, independently of the payload's
	// field policies.
	Policy Policy

	typ reflect.Type
}

// NewVariant declares a union variant with payload type V. The policy governs
// the variant name; the payload's fields follow V's own shape.
func NewVariant[V any](name string, policy Policy) Variant {
	return Variant{Name: name, Policy: policy, typ: reflect.TypeFor[V]()}
}

// Union describes a closed set of variants behind one interface type.
// Immutable after registration.
type Union struct {
	// Name is the union's interface type name, for diagnostics.
	Name string

	// Variants in registration order.
	Variants []Variant

	typ    reflect.Type
	byType map[reflect.Type]int
}

// variantFor returns the variant for a concrete type, unwrapping one level of
// pointer.
func (u *Union) variantFor(rt reflect.Type) (*Variant, bool) {
	if i, ok := u.byType[rt]; ok {
		return &u.Variants[i], true
	}
	if rt.Kind() == reflect.Pointer {
		if i, ok := u.byType[rt.Elem()]; ok {
			return &u.Variants[i], true
		}
	}
	return nil, false
}

// ShapeOption configures shape registration.
type ShapeOption func(*shapeConfig)

type shapeConfig struct {
	name       string
	def        Policy
	hasDefault bool
	overrides  []fieldOverride
}

type fieldOverride struct {
	name   string
	policy Policy
}

// WithName overrides the rendered shape name. By default the Go type name is
// used.
func WithName(name string) ShapeOption {
	return func(c *shapeConfig) {
		c.name = name
	}
}

// WithDefault sets the shape default policy applied to fields without an
// explicit policy.
func WithDefault(p Policy) ShapeOption {
	return func(c *shapeConfig) {
		c.def = p
		c.hasDefault = true
	}
}

// WithField sets the policy for a named field, overriding any `redact` tag on
// it. Registration fails if the type has no such exported field.
func WithField(name string, p Policy) ShapeOption {
	return func(c *shapeConfig) {
		c.overrides = append(c.overrides, fieldOverride{name: name, policy: p})
	}
}

// Register builds and registers the shape for struct type T from its `redact`
// tags plus the given options. Explicit options win over tags. Registration
// fails if T already has a shape; registered shapes are immutable.
//
// All policy/type mismatches are detected here, at registration time, never
// at render time.
func Register[T any](opts ...ShapeOption) (*Shape, error) {
	var cfg shapeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, newConfigError(ErrNotStruct, typ.String(), "")
	}

	spec := sentinel.Scan[T]()
	shape, err := buildShape(spec, typ, cfg)
	if err != nil {
		return nil, err
	}

	if err := storeShape(typ, shape); err != nil {
		return nil, err
	}

	emitShapeRegistered(typ.String(), shape.Name, len(shape.Fields))
	return shape, nil
}

// Scan returns the registered shape for T, building it from `redact` tags on
// first use. Unlike Register it returns the cached shape when one exists.
func Scan[T any]() (*Shape, error) {
	typ := reflect.TypeFor[T]()
	if shape, ok := lookupShape(typ); ok {
		return shape, nil
	}

	shape, err := Register[T]()
	if err != nil {
		// Lost a registration race: another goroutine stored the shape
		// between lookup and store. Shapes built from the same type are
		// identical, so return the winner.
		if s, ok := lookupShape(typ); ok {
			return s, nil
		}
		return nil, err
	}
	return shape, nil
}

// RegisterUnion registers the closed variant set for interface type T. Each
// variant payload must be a struct type implementing T (directly or through a
// pointer receiver); payload shapes are built eagerly so configuration errors
// surface here rather than at render time.
func RegisterUnion[T any](variants ...Variant) (*Union, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Interface {
		return nil, newConfigError(ErrNotInterface, typ.String(), "")
	}

	u := &Union{
		Name:     typ.Name(),
		Variants: make([]Variant, 0, len(variants)),
		typ:      typ,
		byType:   make(map[reflect.Type]int, len(variants)),
	}

	for _, v := range variants {
		if v.Name == "" {
			return nil, newConfigError(fmt.Errorf("%w: variant name must not be empty", ErrInvalidPolicy), u.Name, v.typ.String())
		}
		if err := v.Policy.validate(); err != nil {
			return nil, newConfigError(err, u.Name, v.Name)
		}
		if v.typ.Kind() != reflect.Struct {
			return nil, newConfigError(fmt.Errorf("%w: variant payload must be a struct", ErrNotStruct), u.Name, v.Name)
		}
		if !v.typ.Implements(typ) && !reflect.PointerTo(v.typ).Implements(typ) {
			return nil, newConfigError(fmt.Errorf("variant %s does not implement %s", v.typ, typ), u.Name, v.Name)
		}
		if _, dup := u.byType[v.typ]; dup {
			return nil, newConfigError(ErrAlreadyRegistered, u.Name, v.Name)
		}

		// Build the payload shape now so mismatches fail registration.
		if _, err := shapeForType(v.typ); err != nil {
			return nil, err
		}

		u.byType[v.typ] = len(u.Variants)
		u.Variants = append(u.Variants, v)
	}

	if err := storeUnion(typ, u); err != nil {
		return nil, err
	}

	emitUnionRegistered(typ.String(), u.Name, len(u.Variants))
	return u, nil
}

// buildShape assembles a Shape from sentinel metadata and registration
// options.
func buildShape(spec sentinel.Metadata, typ reflect.Type, cfg shapeConfig) (*Shape, error) {
	name := cfg.name
	if name == "" {
		name = typ.Name()
	}
	if name == "" {
		name = typ.String()
	}

	shape := &Shape{
		Name:   name,
		Fields: make([]FieldSpec, 0, len(spec.Fields)),
		typ:    typ,
	}
	if cfg.hasDefault {
		if err := cfg.def.validate(); err != nil {
			return nil, newConfigError(err, name, "")
		}
		shape.Default = cfg.def
	}

	for _, field := range spec.Fields {
		fs := FieldSpec{
			Name:  field.Name,
			typ:   field.ReflectType,
			index: append([]int{}, field.Index...),
			kind:  classifyField(field.ReflectType),
		}

		if tag, ok := field.Tags["redact"]; ok {
			policy, err := parsePolicyTag(tag)
			if err != nil {
				return nil, newConfigError(err, name, field.Name)
			}
			fs.Policy = policy
		}

		shape.Fields = append(shape.Fields, fs)
	}

	for _, ov := range cfg.overrides {
		if err := ov.policy.validate(); err != nil {
			return nil, newConfigError(err, name, ov.name)
		}
		found := false
		for i := range shape.Fields {
			if shape.Fields[i].Name == ov.name {
				shape.Fields[i].Policy = ov.policy
				found = true
				break
			}
		}
		if !found {
			return nil, newConfigError(ErrUnknownField, name, ov.name)
		}
	}

	for i := range shape.Fields {
		f := &shape.Fields[i]
		policy := shape.policyFor(f)
		if err := policy.validate(); err != nil {
			return nil, newConfigError(err, name, f.Name)
		}
		if err := checkPolicyType(policy, f); err != nil {
			return nil, newConfigError(err, name, f.Name)
		}
	}

	return shape, nil
}

// checkPolicyType rejects policies that cannot apply to a field's type.
// Partial needs text to work on: composite values qualify only when the type
// provides a fmt.Stringer projection.
func checkPolicyType(p Policy, f *FieldSpec) error {
	if p.Kind != PolicyPartial {
		return nil
	}

	switch f.kind {
	case kindText, kindScalar:
		return nil
	case kindPointer:
		elem := f.typ.Elem()
		if elem.Kind() != reflect.Struct {
			return nil
		}
		if hasStringer(f.typ) || hasStringer(elem) {
			return nil
		}
	case kindComposite, kindInterface:
		if hasStringer(f.typ) {
			return nil
		}
	}
	return fmt.Errorf("%w: partial masking of %s requires fmt.Stringer", ErrPolicyMismatch, f.typ)
}

// hasStringer reports whether t or *t implements fmt.Stringer.
func hasStringer(t reflect.Type) bool {
	return t.Implements(stringerType) || reflect.PointerTo(t).Implements(stringerType)
}

// classifyField maps a reflect type to its rendering category.
func classifyField(rt reflect.Type) fieldKind {
	switch rt.Kind() {
	case reflect.String:
		return kindText
	case reflect.Struct:
		return kindComposite
	case reflect.Pointer:
		return kindPointer
	case reflect.Interface:
		return kindInterface
	default:
		return kindScalar
	}
}

// scanType builds sentinel metadata for a type discovered during rendering,
// preferring metadata sentinel has already seen.
func scanType(rt reflect.Type) (sentinel.Metadata, bool) {
	if spec, ok := sentinel.Lookup(rt.String()); ok {
		return spec, true
	}

	if rt.Kind() != reflect.Struct {
		return sentinel.Metadata{}, false
	}

	spec := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        make(map[string]string, 1),
		}
		if val, ok := sf.Tag.Lookup("redact"); ok {
			fm.Tags["redact"] = val
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		spec.Fields = append(spec.Fields, fm)
	}

	return spec, true
}

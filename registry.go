package veil

import (
	"reflect"
	"sync"
)

var (
	shapeRegistry = make(map[reflect.Type]*Shape)
	unionRegistry = make(map[reflect.Type]*Union)
	registryMu    sync.RWMutex
)

// lookupShape returns the registered shape for a type.
func lookupShape(t reflect.Type) (*Shape, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := shapeRegistry[t]
	return s, ok
}

// storeShape registers a shape. Shapes are immutable once stored.
func storeShape(t reflect.Type, s *Shape) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := shapeRegistry[t]; ok {
		return newConfigError(ErrAlreadyRegistered, s.Name, "")
	}
	shapeRegistry[t] = s
	return nil
}

// lookupUnion returns the registered union for an interface type.
func lookupUnion(t reflect.Type) (*Union, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	u, ok := unionRegistry[t]
	return u, ok
}

// storeUnion registers a union. Unions are immutable once stored.
func storeUnion(t reflect.Type, u *Union) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := unionRegistry[t]; ok {
		return newConfigError(ErrAlreadyRegistered, u.Name, "")
	}
	unionRegistry[t] = u
	return nil
}

// shapeForType returns a cached shape or builds one from the type's `redact`
// tags. Used for types first seen while rendering (nested structs, variant
// payloads) so the whole object graph does not need explicit registration.
func shapeForType(rt reflect.Type) (*Shape, error) {
	// Fast path: read-lock cache check
	registryMu.RLock()
	if s, ok := shapeRegistry[rt]; ok {
		registryMu.RUnlock()
		return s, nil
	}
	registryMu.RUnlock()

	spec, ok := scanType(rt)
	if !ok {
		return nil, newConfigError(ErrNotStruct, rt.String(), "")
	}
	shape, err := buildShape(spec, rt, shapeConfig{})
	if err != nil {
		return nil, err
	}

	// Slow path: store with write-lock, double-check pattern
	registryMu.Lock()
	if s, ok := shapeRegistry[rt]; ok {
		registryMu.Unlock()
		return s, nil
	}
	shapeRegistry[rt] = shape
	registryMu.Unlock()

	emitShapeRegistered(rt.String(), shape.Name, len(shape.Fields))
	return shape, nil
}

// Reset clears the shape and union registries.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	shapeRegistry = make(map[reflect.Type]*Shape)
	unionRegistry = make(map[reflect.Type]*Union)
}

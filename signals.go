package veil

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for veil events.
var (
	SignalShapeRegistered = capitan.NewSignal("veil.shape.registered", "Shape registered")
	SignalUnionRegistered = capitan.NewSignal("veil.union.registered", "Union registered")
	SignalToggleResolved  = capitan.NewSignal("veil.toggle.resolved", "Toggle state resolved")
	SignalRenderStart     = capitan.NewSignal("veil.render.start", "Render operation beginning")
	SignalRenderComplete  = capitan.NewSignal("veil.render.complete", "Render operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName     = capitan.NewStringKey("type_name")
	KeyShapeName    = capitan.NewStringKey("shape_name")
	KeyFieldCount   = capitan.NewIntKey("field_count")
	KeyVariantCount = capitan.NewIntKey("variant_count")
	KeyOutcome      = capitan.NewStringKey("outcome")
	KeySource       = capitan.NewStringKey("source")
	KeyVariable     = capitan.NewStringKey("variable")
	KeyDuration     = capitan.NewDurationKey("duration")
	KeyMaskedCount  = capitan.NewIntKey("masked_count")
	KeyError        = capitan.NewErrorKey("error")
)

// Toggle resolution sources reported via KeySource.
const (
	toggleSourceDisabled = "disabled"
	toggleSourceOverride = "override"
	toggleSourceRule     = "rule"
	toggleSourceFallback = "fallback"
)

// emitShapeRegistered emits an event when a shape is registered.
func emitShapeRegistered(typeName, shapeName string, fields int) {
	capitan.Emit(context.Background(), SignalShapeRegistered,
		KeyTypeName.Field(typeName),
		KeyShapeName.Field(shapeName),
		KeyFieldCount.Field(fields),
	)
}

// emitUnionRegistered emits an event when a union is registered.
func emitUnionRegistered(typeName, unionName string, variants int) {
	capitan.Emit(context.Background(), SignalUnionRegistered,
		KeyTypeName.Field(typeName),
		KeyShapeName.Field(unionName),
		KeyVariantCount.Field(variants),
	)
}

// emitToggleResolved emits an event when the toggle state resolves. The
// outcome is "redact" or "plaintext"; source names what decided it. Never
// emitted more than once per toggle.
func emitToggleResolved(active bool, source, variable string, err error) {
	outcome := "plaintext"
	if active {
		outcome = "redact"
	}
	fields := []capitan.Field{
		KeyOutcome.Field(outcome),
		KeySource.Field(source),
	}
	if variable != "" {
		fields = append(fields, KeyVariable.Field(variable))
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(context.Background(), SignalToggleResolved, fields...)
	} else {
		capitan.Emit(context.Background(), SignalToggleResolved, fields...)
	}
}

// emitRenderStart emits an event when a render begins.
func emitRenderStart(typeName string) {
	capitan.Emit(context.Background(), SignalRenderStart,
		KeyTypeName.Field(typeName),
	)
}

// emitRenderComplete emits an event when a render finishes.
func emitRenderComplete(typeName string, duration time.Duration, masked int, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
		KeyMaskedCount.Field(masked),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(context.Background(), SignalRenderComplete, fields...)
	} else {
		capitan.Emit(context.Background(), SignalRenderComplete, fields...)
	}
}

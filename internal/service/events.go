package service

import (
	"github.com/bookberryapp/bookberry-server/internal/sse"
)

// EventEmitter publishes change events to subscribers.
// *sse.Manager implements it.
type EventEmitter interface {
	Emit(event sse.Event)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// NewNoopEmitter returns an emitter that drops everything.
func NewNoopEmitter() *NoopEmitter { return &NoopEmitter{} }

// Emit does nothing.
func (NoopEmitter) Emit(sse.Event) {}

var _ EventEmitter = (*sse.Manager)(nil)

// Package events carries WingsEvent lifecycle notifications out of the
// lifecycle engine to the single gRPC EventStream consumer, without ever
// blocking the caller that emits them.
package events

import (
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/metrics"
	"github.com/nexus-wings/wings/pkg/types"
)

// Capacity is the bounded buffer size. When full, new events are dropped
// and a warning is logged; the bus never blocks a lifecycle transition.
const Capacity = 1000

// Bus is a single-producer-API, single-consumer bounded event channel.
type Bus struct {
	ch chan types.WingsEvent
}

// NewBus creates a Bus with the default capacity.
func NewBus() *Bus {
	return &Bus{ch: make(chan types.WingsEvent, Capacity)}
}

// Emit tries to push event onto the bus. If the buffer is full the event
// is dropped and a warning logged; Emit never blocks.
func (b *Bus) Emit(event types.WingsEvent) {
	select {
	case b.ch <- event:
		metrics.EventsEmittedTotal.Inc()
	default:
		metrics.EventsDroppedTotal.Inc()
		log.Logger.Warn().Str("uuid", event.UUID).Str("kind", string(event.Kind)).
			Msg("event bus full, dropping event")
	}
}

// Events returns the receive-only channel the single consumer (the gRPC
// EventStream handler) drains.
func (b *Bus) Events() <-chan types.WingsEvent {
	return b.ch
}

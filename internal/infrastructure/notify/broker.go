// Package notify implements the dual-channel completion notification
// protocol: a synchronous in-process publish/subscribe core, a relay that
// forwards events across the process boundary to one specific subscriber
// session, and a polling fallback that keeps clients converging when a
// push event is dropped.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

// Sink receives published events. A sink that fails is logged and skipped;
// it never blocks delivery to the other sinks on the channel.
type Sink interface {
	Write(event domain.PushEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event domain.PushEvent) error

func (f SinkFunc) Write(event domain.PushEvent) error { return f(event) }

// Broker is the in-process core: a channel name maps to the set of live
// sinks. Delivery is synchronous, at-most-once, with no cross-channel
// ordering guarantee.
type Broker struct {
	logger *slog.Logger

	mu       sync.RWMutex
	channels map[string]map[string]Sink
}

func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		logger:   logger,
		channels: make(map[string]map[string]Sink),
	}
}

// Attach registers a sink on a channel and returns its detach function.
// Detaching twice is harmless.
func (b *Broker) Attach(channel string, sink Sink) func() {
	id := uuid.NewString()

	b.mu.Lock()
	sinks, ok := b.channels[channel]
	if !ok {
		sinks = make(map[string]Sink)
		b.channels[channel] = sinks
	}
	sinks[id] = sink
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sinks, ok := b.channels[channel]; ok {
			delete(sinks, id)
			if len(sinks) == 0 {
				delete(b.channels, channel)
			}
		}
	}
}

// Publish hands the event to every sink currently registered on the
// channel. Sink failures are isolated per sink.
func (b *Broker) Publish(channel string, payload any) {
	b.PublishEvent(domain.NewPushEvent(channel, payload, time.Time{}))
}

func (b *Broker) PublishEvent(event domain.PushEvent) {
	b.mu.RLock()
	targets := make([]Sink, 0, len(b.channels[event.Channel]))
	for _, sink := range b.channels[event.Channel] {
		targets = append(targets, sink)
	}
	b.mu.RUnlock()

	for _, sink := range targets {
		b.deliver(sink, event)
	}
}

func (b *Broker) deliver(sink Sink, event domain.PushEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("sink panicked during delivery",
				"channel", event.Channel, "panic", fmt.Sprint(r))
		}
	}()
	if err := sink.Write(event); err != nil {
		b.logger.Warn("sink delivery failed", "channel", event.Channel, "error", err)
	}
}

// SinkCount reports the number of live sinks on a channel.
func (b *Broker) SinkCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

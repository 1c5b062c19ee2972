// Package publisher provides audit.Publisher implementations: an in-process
// buffered channel drained by a worker, and a Kafka producer for streaming
// sinks.
package publisher

import (
	"context"
	"errors"

	audit "libris/pkg/platform/audit"
)

// ErrBufferFull reports a dropped event. Audit delivery is best-effort, so a
// full buffer sheds load instead of blocking the primary operation.
var ErrBufferFull = errors.New("audit buffer full, event dropped")

// ChannelPublisher buffers events in memory for a worker to drain.
type ChannelPublisher struct {
	inbox chan audit.Event
}

// NewChannelPublisher creates a publisher with the given buffer size.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelPublisher{inbox: make(chan audit.Event, buffer)}
}

// Emit enqueues the event without blocking. A full buffer drops the event
// and reports ErrBufferFull for the caller to log.
func (p *ChannelPublisher) Emit(_ context.Context, event audit.Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Events exposes the inbox for the draining worker.
func (p *ChannelPublisher) Events() <-chan audit.Event {
	return p.inbox
}

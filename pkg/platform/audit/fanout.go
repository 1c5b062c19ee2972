package audit

import (
	"context"
	"errors"
)

// Fanout delivers each event to every configured publisher. Failures are
// joined so the emitter can log them together; one slow or broken sink
// never hides the others.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a fanout over the non-nil publishers. Returns nil when
// nothing is configured so callers can pass the result straight to
// NewEmitter.
func NewFanout(publishers ...Publisher) *Fanout {
	var active []Publisher
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return &Fanout{publishers: active}
}

func (f *Fanout) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

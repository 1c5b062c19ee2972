package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Emit(_ context.Context, event Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	first := &recordingPublisher{}
	second := &recordingPublisher{}
	f := NewFanout(first, nil, second)
	require.NotNil(t, f)

	require.NoError(t, f.Emit(context.Background(), Event{Action: ActionBorrowBook}))
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestFanoutJoinsFailures(t *testing.T) {
	broken := &recordingPublisher{err: errors.New("sink down")}
	healthy := &recordingPublisher{}
	f := NewFanout(broken, healthy)

	err := f.Emit(context.Background(), Event{Action: ActionReturnBook})
	require.Error(t, err)
	// The healthy sink still got the event.
	assert.Len(t, healthy.events, 1)
}

func TestFanoutEmpty(t *testing.T) {
	assert.Nil(t, NewFanout(nil, nil))
}

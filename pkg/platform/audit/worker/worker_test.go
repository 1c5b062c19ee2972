package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "libris/pkg/platform/audit"
	"libris/pkg/platform/audit/publisher"
	auditmemory "libris/pkg/platform/audit/store/memory"
)

func TestWorkerDrainsIntoStore(t *testing.T) {
	p := publisher.NewChannelPublisher(8)
	sink := auditmemory.NewInMemoryStore()
	w := NewWorker(sink, p.Events(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionBorrowBook}))
	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionReturnBook}))

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type failingStore struct {
	calls atomic.Int32
}

func (s *failingStore) Append(context.Context, audit.Event) error {
	s.calls.Add(1)
	return errors.New("append failed")
}

func TestWorkerSurvivesAppendFailures(t *testing.T) {
	p := publisher.NewChannelPublisher(8)
	store := &failingStore{}
	w := NewWorker(store, p.Events(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	defer cancel()

	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionLogout}))
	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionLogout}))

	require.Eventually(t, func() bool {
		return store.calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

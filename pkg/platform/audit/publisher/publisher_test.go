package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "libris/pkg/platform/audit"
)

func TestChannelPublisherDelivers(t *testing.T) {
	p := NewChannelPublisher(4)

	require.NoError(t, p.Emit(context.Background(), audit.Event{Action: audit.ActionBorrowBook}))

	select {
	case event := <-p.Events():
		assert.Equal(t, audit.ActionBorrowBook, event.Action)
	default:
		t.Fatal("expected buffered event")
	}
}

func TestChannelPublisherShedsWhenFull(t *testing.T) {
	p := NewChannelPublisher(1)

	require.NoError(t, p.Emit(context.Background(), audit.Event{Action: audit.ActionBorrowBook}))
	err := p.Emit(context.Background(), audit.Event{Action: audit.ActionReturnBook})
	assert.ErrorIs(t, err, ErrBufferFull)

	// The first event is still intact.
	event := <-p.Events()
	assert.Equal(t, audit.ActionBorrowBook, event.Action)
}

func TestChannelPublisherDefaultBuffer(t *testing.T) {
	p := NewChannelPublisher(0)
	for i := 0; i < 256; i++ {
		require.NoError(t, p.Emit(context.Background(), audit.Event{Action: audit.ActionLoginSuccess}))
	}
	assert.ErrorIs(t, p.Emit(context.Background(), audit.Event{}), ErrBufferFull)
}

package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaybot/internal/logging"
	"relaybot/internal/transport"
)

func TestLoopDispatchesInOrderAndSurvivesErrors(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})
	loop := NewLoop(d, logging.Nop())

	updates := make(chan transport.Update, 8)
	updates <- transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{ChatID: 1, Text: "/start"}}
	// Non-message kinds are discarded, not dispatched.
	updates <- transport.Update{Kind: transport.UpdateOther}
	updates <- transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{ChatID: 2, Text: "/start"}}
	close(updates)

	err := loop.Run(context.Background(), updates)
	require.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, []string{"1", "2"}, store.rows)
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	loop := NewLoop(newTestDispatcher(&fakeStore{}, &fakeSender{}, &fakeFeed{}), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan transport.Update)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, updates) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestLoopContinuesAfterCommandFailure(t *testing.T) {
	store := &fakeStore{listErr: assertErr{}}
	sender := &fakeSender{}
	loop := NewLoop(newTestDispatcher(store, sender, &fakeFeed{}), logging.Nop())

	updates := make(chan transport.Update, 4)
	// Broadcast fails at ListAll, then a subscribe must still succeed.
	updates <- transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{ChatID: 9, FromUsername: "operator", Text: "Hello"}}
	updates <- transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{ChatID: 3, Text: "/start"}}
	close(updates)

	err := loop.Run(context.Background(), updates)
	require.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, []string{"3"}, store.rows)
}

type assertErr struct{}

func (assertErr) Error() string { return "store unavailable" }

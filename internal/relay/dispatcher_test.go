package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaybot/internal/feed"
	"relaybot/internal/logging"
	"relaybot/internal/transport"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    []string
	addErr  error
	listErr error
}

func (s *fakeStore) Add(_ context.Context, chatID string) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r == chatID {
			return nil
		}
	}
	s.rows = append(s.rows, chatID)
	return nil
}

func (s *fakeStore) Remove(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.rows[:0]
	for _, r := range s.rows {
		if r != chatID {
			out = append(out, r)
		}
	}
	s.rows = out
	return nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rows...), nil
}

func (s *fakeStore) Close() error { return nil }

type sentMsg struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMsg // synchronous Send calls
	spawned []sentMsg // fire-and-forget Spawn calls
	sendErr error
	// failFor simulates per-recipient delivery failure in Spawn.
	failFor map[int64]bool
	failed  []int64
}

func (f *fakeSender) Send(_ context.Context, to transport.ChatTarget, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{ChatID: to.ChatID, Text: text})
	return nil
}

func (f *fakeSender) Spawn(to transport.ChatTarget, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to.ChatID] {
		f.failed = append(f.failed, to.ChatID)
		return
	}
	f.spawned = append(f.spawned, sentMsg{ChatID: to.ChatID, Text: text})
}

type fakeFeed struct {
	posts []feed.Post
	err   error
}

func (f *fakeFeed) Latest(context.Context) ([]feed.Post, error) { return f.posts, f.err }
func (f *fakeFeed) DeepLink(slug string) string                 { return "https://blog.example.com/" + slug }

func newTestDispatcher(store *fakeStore, sender *fakeSender, src FeedSource) *Dispatcher {
	return NewDispatcher(store, sender, src, "operator", logging.Nop())
}

func TestSubscribeStoresAndConfirms(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 42, FromUsername: "someone", Text: "/start"}
	require.NoError(t, d.Handle(context.Background(), msg))

	assert.Equal(t, []string{"42"}, store.rows)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, sentMsg{ChatID: 42, Text: "Thank you for subscribing!"}, sender.sent[0])
}

func TestSubscribeIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 42, Text: "/start"}
	require.NoError(t, d.Handle(context.Background(), msg))
	require.NoError(t, d.Handle(context.Background(), msg))

	// One row, but the confirmation is re-sent every time.
	assert.Equal(t, []string{"42"}, store.rows)
	assert.Len(t, sender.sent, 2)
}

func TestSubscribeStoreFailureSkipsConfirmation(t *testing.T) {
	store := &fakeStore{addErr: errors.New("connection refused")}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	err := d.Handle(context.Background(), &transport.Message{ChatID: 42, Text: "/start"})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestUnsubscribeRemovesAndConfirms(t *testing.T) {
	store := &fakeStore{rows: []string{"42", "7"}}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	require.NoError(t, d.Handle(context.Background(), &transport.Message{ChatID: 42, Text: "/stop"}))

	assert.Equal(t, []string{"7"}, store.rows)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "You are unsubscribed.", sender.sent[0].Text)
}

func TestAdminBroadcastReachesAllSubscribers(t *testing.T) {
	store := &fakeStore{rows: []string{"1", "2"}}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 99, FromUsername: "operator", Text: "Hello"}
	require.NoError(t, d.Handle(context.Background(), msg))

	// Synchronous ack to the admin chat, then detached fan-out.
	require.Len(t, sender.sent, 1)
	assert.Equal(t, sentMsg{ChatID: 99, Text: "Sending to all!"}, sender.sent[0])
	assert.ElementsMatch(t, []sentMsg{
		{ChatID: 1, Text: "Hello"},
		{ChatID: 2, Text: "Hello"},
	}, sender.spawned)
}

func TestAdminEmptyBroadcastSendsAckOnly(t *testing.T) {
	store := &fakeStore{rows: []string{"1"}}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 99, FromUsername: "operator", Text: ""}
	require.NoError(t, d.Handle(context.Background(), msg))

	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.spawned)
}

func TestBroadcastIsolatesRecipientFailures(t *testing.T) {
	store := &fakeStore{rows: []string{"1", "2", "3"}}
	sender := &fakeSender{failFor: map[int64]bool{2: true}}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 99, FromUsername: "operator", Text: "Hello"}
	require.NoError(t, d.Handle(context.Background(), msg))

	assert.ElementsMatch(t, []sentMsg{
		{ChatID: 1, Text: "Hello"},
		{ChatID: 3, Text: "Hello"},
	}, sender.spawned)
	assert.Equal(t, []int64{2}, sender.failed)
}

func TestBroadcastSkipsMalformedStoredID(t *testing.T) {
	store := &fakeStore{rows: []string{"1", "not-a-number", "3"}}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 99, FromUsername: "operator", Text: "Hello"}
	require.NoError(t, d.Handle(context.Background(), msg))

	assert.ElementsMatch(t, []sentMsg{
		{ChatID: 1, Text: "Hello"},
		{ChatID: 3, Text: "Hello"},
	}, sender.spawned)
}

func TestBroadcastListFailureAfterAck(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 99, FromUsername: "operator", Text: "Hello"}
	err := d.Handle(context.Background(), msg)
	require.Error(t, err)

	// Ack already went out, but nothing was broadcast.
	assert.Len(t, sender.sent, 1)
	assert.Empty(t, sender.spawned)
}

func TestLatestPreviewsToRequesterOnly(t *testing.T) {
	store := &fakeStore{rows: []string{"1", "2"}}
	sender := &fakeSender{}
	src := &fakeFeed{posts: []feed.Post{
		{Title: "A", Slug: "a"},
		{Title: "B", Slug: "b"},
	}}
	d := newTestDispatcher(store, sender, src)

	msg := &transport.Message{ChatID: 7, FromUsername: "someone", Text: "/latest"}
	require.NoError(t, d.Handle(context.Background(), msg))

	require.Len(t, sender.sent, 3)
	assert.Equal(t, sentMsg{ChatID: 7, Text: "Here are the latest posts:"}, sender.sent[0])
	assert.Equal(t, sentMsg{ChatID: 7, Text: "A https://blog.example.com/a"}, sender.sent[1])
	assert.Equal(t, sentMsg{ChatID: 7, Text: "B https://blog.example.com/b"}, sender.sent[2])
	assert.Empty(t, sender.spawned, "preview must not fan out to subscribers")
}

func TestLatestFeedFailureSendsNothing(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{err: errors.New("feed unreachable")})

	err := d.Handle(context.Background(), &transport.Message{ChatID: 7, Text: "/latest"})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestNonAdminMessageIsInert(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, &fakeFeed{})

	msg := &transport.Message{ChatID: 5, FromUsername: "stranger", Text: "broadcast this please"}
	require.NoError(t, d.Handle(context.Background(), msg))

	assert.Empty(t, store.rows)
	assert.Empty(t, sender.sent)
	assert.Empty(t, sender.spawned)
}

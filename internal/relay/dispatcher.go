package relay

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"relaybot/internal/feed"
	"relaybot/internal/storage"
	"relaybot/internal/transport"
)

const (
	replySubscribed   = "Thank you for subscribing!"
	replyUnsubscribed = "You are unsubscribed."
	replyAnnouncing   = "Sending to all!"
	replyLatestIntro  = "Here are the latest posts:"
)

// FeedSource is the slice of the feed client the dispatcher needs.
type FeedSource interface {
	Latest(ctx context.Context) ([]feed.Post, error)
	DeepLink(slug string) string
}

// Dispatcher routes classified commands to the store, the feed and the
// outbound sender. It holds no per-message state; every broadcast
// re-reads the subscriber set.
type Dispatcher struct {
	store  storage.Store
	sender transport.Sender
	feed   FeedSource
	admin  string
	log    zerolog.Logger
}

func NewDispatcher(store storage.Store, sender transport.Sender, feed FeedSource, admin string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		feed:   feed,
		admin:  admin,
		log:    log,
	}
}

// Handle classifies one inbound message and executes the resulting
// command. A returned error means the current command failed; the
// caller logs it and moves on to the next update.
func (d *Dispatcher) Handle(ctx context.Context, msg *transport.Message) error {
	cmd := Classify(msg, d.admin)
	origin := transport.ChatTarget{ChatID: msg.ChatID}

	switch cmd.Kind {
	case Subscribe:
		return d.subscribe(ctx, origin)
	case Unsubscribe:
		return d.unsubscribe(ctx, origin)
	case BroadcastAnnounce:
		return d.announce(ctx, origin, cmd.Payload)
	case FetchAndBroadcast:
		return d.latest(ctx, origin)
	default:
		return nil
	}
}

func (d *Dispatcher) subscribe(ctx context.Context, origin transport.ChatTarget) error {
	chatID := strconv.FormatInt(origin.ChatID, 10)
	if err := d.store.Add(ctx, chatID); err != nil {
		return fmt.Errorf("subscribe chat %s: %w", chatID, err)
	}
	d.log.Info().Str("chat_id", chatID).Msg("subscribed")
	if err := d.sender.Send(ctx, origin, replySubscribed); err != nil {
		return fmt.Errorf("confirm subscription: %w", err)
	}
	return nil
}

func (d *Dispatcher) unsubscribe(ctx context.Context, origin transport.ChatTarget) error {
	chatID := strconv.FormatInt(origin.ChatID, 10)
	if err := d.store.Remove(ctx, chatID); err != nil {
		return fmt.Errorf("unsubscribe chat %s: %w", chatID, err)
	}
	d.log.Info().Str("chat_id", chatID).Msg("unsubscribed")
	if err := d.sender.Send(ctx, origin, replyUnsubscribed); err != nil {
		return fmt.Errorf("confirm unsubscription: %w", err)
	}
	return nil
}

// announce acknowledges the admin synchronously, then fans the payload
// out to all subscribers. The fan-out is detached: the update loop does
// not wait for individual deliveries.
func (d *Dispatcher) announce(ctx context.Context, origin transport.ChatTarget, payload string) error {
	if err := d.sender.Send(ctx, origin, replyAnnouncing); err != nil {
		return fmt.Errorf("acknowledge broadcast: %w", err)
	}
	if payload == "" {
		d.log.Warn().Msg("broadcast requested with no message text")
		return nil
	}

	recipients, err := d.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	d.broadcast(recipients, payload)
	return nil
}

// broadcast dispatches the payload to each recipient independently.
// A stored chat id that no longer parses is a data-integrity fault in
// one row: it is logged and skipped, the rest of the batch proceeds.
func (d *Dispatcher) broadcast(recipients []string, payload string) {
	sent := 0
	for _, raw := range recipients {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			d.log.Error().Str("chat_id", raw).Err(err).Msg("skipping malformed subscriber id")
			continue
		}
		d.sender.Spawn(transport.ChatTarget{ChatID: id}, payload)
		sent++
	}
	d.log.Info().Int("recipients", sent).Int("skipped", len(recipients)-sent).Msg("broadcast dispatched")
}

// latest previews the newest feed posts to the requesting chat only.
func (d *Dispatcher) latest(ctx context.Context, origin transport.ChatTarget) error {
	posts, err := d.feed.Latest(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest posts: %w", err)
	}

	if err := d.sender.Send(ctx, origin, replyLatestIntro); err != nil {
		return fmt.Errorf("send intro: %w", err)
	}
	for _, p := range posts {
		line := p.Title + " " + d.feed.DeepLink(p.Slug)
		if err := d.sender.Send(ctx, origin, line); err != nil {
			return fmt.Errorf("send post %q: %w", p.Slug, err)
		}
	}
	return nil
}

package transport

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
	UpdateOther   UpdateKind = "other"
)

// Update is one inbound event from the chat platform. Only message
// updates carry a payload; the loop discards everything else.
type Update struct {
	Kind    UpdateKind
	Message *Message
}

// Message is a platform-neutral inbound chat message.
// FromUsername may be empty: not every account has a username set.
type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID int64
}

// Sender delivers outbound text messages.
//
// Send blocks until the platform accepts (or rejects) the message and is
// used for direct replies. Spawn is fire-and-forget: it returns
// immediately and a delivery failure is only logged, so one dead chat
// cannot stall a broadcast batch.
type Sender interface {
	Send(ctx context.Context, to ChatTarget, text string) error
	Spawn(to ChatTarget, text string)
}

// Adapter is a platform client: an inbound update stream plus a Sender.
type Adapter interface {
	Sender

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
}

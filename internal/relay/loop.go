package relay

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"relaybot/internal/transport"
)

// ErrStreamClosed is returned by Run when the inbound update stream
// ends. The stream is not restartable; the process is expected to exit
// and be restarted by its host.
var ErrStreamClosed = errors.New("update stream closed")

// Loop consumes inbound updates one at a time, strictly in arrival
// order, and feeds each message to the dispatcher.
type Loop struct {
	dispatcher *Dispatcher
	log        zerolog.Logger
}

func NewLoop(dispatcher *Dispatcher, log zerolog.Logger) *Loop {
	return &Loop{dispatcher: dispatcher, log: log}
}

// Run blocks until the context is cancelled or the update stream ends.
// A failed command aborts only that command: the error is logged and
// the loop continues with the next update.
func (l *Loop) Run(ctx context.Context, updates <-chan transport.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return ErrStreamClosed
			}
			if up.Kind != transport.UpdateMessage || up.Message == nil {
				continue
			}
			if err := l.dispatcher.Handle(ctx, up.Message); err != nil {
				l.log.Error().Int64("chat_id", up.Message.ChatID).Err(err).Msg("command failed")
			}
		}
	}
}

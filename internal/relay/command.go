// Package relay is the core of the bot: it classifies inbound messages
// into commands, keeps the subscriber set current, and fans broadcasts
// out to every subscriber.
package relay

import "relaybot/internal/transport"

type CommandKind int

const (
	// Ignore: no recognized command and not from the admin.
	Ignore CommandKind = iota
	// Subscribe adds the originating chat to the subscriber set.
	Subscribe
	// Unsubscribe removes the originating chat from the subscriber set.
	Unsubscribe
	// BroadcastAnnounce sends the message text to every subscriber.
	BroadcastAnnounce
	// FetchAndBroadcast previews the latest feed posts to the requester.
	FetchAndBroadcast
)

// Command is the in-memory classification of one inbound message.
type Command struct {
	Kind CommandKind
	// Payload carries the broadcast text for BroadcastAnnounce.
	Payload string
}

// Classify maps an inbound message to a Command. It is total: any
// combination of text and sender maps to exactly one command, and a
// missing username simply means "not the admin", never an error.
//
// Rules are checked in order, so the admin sending "/start" subscribes
// like anyone else instead of broadcasting the literal "/start".
func Classify(msg *transport.Message, admin string) Command {
	switch msg.Text {
	case "/start":
		return Command{Kind: Subscribe}
	case "/stop":
		return Command{Kind: Unsubscribe}
	case "/latest":
		return Command{Kind: FetchAndBroadcast}
	}
	if msg.FromUsername != "" && msg.FromUsername == admin {
		return Command{Kind: BroadcastAnnounce, Payload: msg.Text}
	}
	return Command{Kind: Ignore}
}

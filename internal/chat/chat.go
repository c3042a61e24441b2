// Package chat defines the chat-session capability consumed by the pipeline
package chat

import "context"

// Conversation is a resolved one-to-one chat target. DisplayName is resolved
// once at session start and never refreshed.
type Conversation struct {
	ID          int64
	DisplayName string
	Username    string
}

// Message is one chat event scoped to a conversation
type Message struct {
	ID     int64
	Text   string
	IsSelf bool
}

// Session is the chat transport contract. The pipeline treats it as an
// external collaborator; implementations own connection, authentication, and
// delivery concerns.
type Session interface {
	// ResolveTarget resolves a selector (numeric chat id or @username)
	// into a conversation
	ResolveTarget(ctx context.Context, selector string) (Conversation, error)

	// RecentMessages returns up to limit messages from a conversation,
	// oldest first. Transports without a history surface may return an
	// empty slice.
	RecentMessages(ctx context.Context, conv Conversation, limit int) ([]Message, error)

	// Send delivers text to the conversation and returns the sent message
	Send(ctx context.Context, conv Conversation, text string) (Message, error)

	// Updates subscribes to new-message events for the conversation. The
	// channel closes when the context is cancelled or the transport stops.
	Updates(ctx context.Context, conv Conversation) (<-chan Message, error)
}

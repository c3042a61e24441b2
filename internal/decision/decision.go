// Package decision governs whether and how a generated candidate is sent
package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Console is a blocking line-input capability for operator prompts
type Console interface {
	// Prompt displays a label and returns one line of operator input
	Prompt(label string) (string, error)
}

// SendFunc delivers candidate text and returns the sent message id
type SendFunc func(ctx context.Context, text string) (int64, error)

// Outcome is a terminal state of the loop
type Outcome string

const (
	// Sent means the candidate was delivered
	Sent Outcome = "sent"

	// Discarded means the candidate was dropped without delivery
	Discarded Outcome = "discarded"
)

// Resolution describes how one pending decision ended
type Resolution struct {
	Outcome Outcome

	// FinalText is the candidate text as delivered, after any edits
	FinalText string

	// SentID is the chat id of the delivered message, set only when Sent
	SentID int64
}

// Loop mediates the operator's disposition of one candidate at a time. The
// mode is fixed at session start.
type Loop struct {
	console   Console
	automatic bool
}

// NewLoop creates a decision loop. In automatic mode candidates are sent
// without confirmation and console may be nil.
func NewLoop(console Console, automatic bool) *Loop {
	return &Loop{console: console, automatic: automatic}
}

// Automatic reports whether the loop sends without confirmation
func (l *Loop) Automatic() bool {
	return l.automatic
}

// Resolve drives one candidate to a terminal state. It blocks until the
// operator resolves the decision (or, in automatic mode, until the send
// completes). A send failure propagates to the caller: the candidate is
// neither recorded nor discarded, and the operator is expected to retry.
func (l *Loop) Resolve(ctx context.Context, candidate string, send SendFunc) (Resolution, error) {
	if l.automatic {
		return l.deliver(ctx, candidate, send)
	}

	for {
		input, err := l.console.Prompt("Action [ (S)end / (E)dit / (I)gnore ]: ")
		if err != nil {
			return Resolution{}, fmt.Errorf("reading operator action: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "", "s", "send":
			return l.deliver(ctx, candidate, send)

		case "e", "edit":
			replacement, err := l.console.Prompt("Enter new text: ")
			if err != nil {
				return Resolution{}, fmt.Errorf("reading replacement text: %w", err)
			}
			if trimmed := strings.TrimSpace(replacement); trimmed != "" {
				candidate = trimmed
				log.Info().Str("text", candidate).Msg("candidate edited")
			}
			// Loop back for confirmation either way.

		case "i", "ignore", "skip":
			log.Info().Msg("candidate discarded")
			return Resolution{Outcome: Discarded}, nil

		default:
			// Unrecognized input re-prompts without state change.
		}
	}
}

func (l *Loop) deliver(ctx context.Context, candidate string, send SendFunc) (Resolution, error) {
	sentID, err := send(ctx, candidate)
	if err != nil {
		return Resolution{}, fmt.Errorf("sending candidate: %w", err)
	}
	return Resolution{Outcome: Sent, FinalText: candidate, SentID: sentID}, nil
}

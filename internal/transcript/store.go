// Package transcript provides a write-only archive of session activity.
// The archive is never read back into the live context buffer; a fresh
// process always starts with empty history.
package transcript

import (
	"context"
	"io"

	"github.com/cloud-shuttle/wingman/internal/history"
)

// Store records turns and decision resolutions for one or more sessions
type Store interface {
	// BeginSession opens a new session row and returns its id
	BeginSession(ctx context.Context, chatID int64, chatTitle, provider string) (string, error)

	// RecordTurn archives one recorded turn
	RecordTurn(ctx context.Context, sessionID string, turn history.Turn) error

	// RecordDecision archives the resolution of one pending decision
	RecordDecision(ctx context.Context, sessionID string, triggerID int64, outcome, finalText string) error

	// Export writes all archived turns as JSONL, oldest first
	Export(ctx context.Context, w io.Writer) error

	// Close releases the underlying storage
	Close() error
}

// NopStore discards everything; used when no transcript path is configured
type NopStore struct{}

func (NopStore) BeginSession(ctx context.Context, chatID int64, chatTitle, provider string) (string, error) {
	return "", nil
}

func (NopStore) RecordTurn(ctx context.Context, sessionID string, turn history.Turn) error {
	return nil
}

func (NopStore) RecordDecision(ctx context.Context, sessionID string, triggerID int64, outcome, finalText string) error {
	return nil
}

func (NopStore) Export(ctx context.Context, w io.Writer) error {
	return nil
}

func (NopStore) Close() error {
	return nil
}

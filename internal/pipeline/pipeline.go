// Package pipeline turns inbound chat events into generation requests and
// outbound actions, one event at a time
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/cloud-shuttle/wingman/internal/chat"
	"github.com/cloud-shuttle/wingman/internal/decision"
	"github.com/cloud-shuttle/wingman/internal/history"
	"github.com/cloud-shuttle/wingman/internal/llm"
	"github.com/cloud-shuttle/wingman/internal/transcript"
)

// Deps are the collaborators owned by or provided to one pipeline instance
type Deps struct {
	Session      chat.Session
	Conversation chat.Conversation
	History      *history.Store
	Provider     llm.Provider
	Decisions    *decision.Loop
	Transcript   transcript.Store
}

// Pipeline processes the single monitored conversation. It exclusively owns
// the history store and the current pending decision; events are drained
// strictly one at a time, so a pending decision fully resolves before the
// next event is handled and no concurrent writers exist by construction.
type Pipeline struct {
	deps      Deps
	sessionID string
}

// New creates a pipeline. A nil Transcript falls back to the no-op store.
func New(deps Deps) *Pipeline {
	if deps.Transcript == nil {
		deps.Transcript = transcript.NopStore{}
	}
	return &Pipeline{deps: deps}
}

// Preload fills the history store from the most recent messages of the
// conversation, oldest first, before live handling begins
func (p *Pipeline) Preload(ctx context.Context) error {
	msgs, err := p.deps.Session.RecentMessages(ctx, p.deps.Conversation, p.deps.History.Capacity())
	if err != nil {
		return fmt.Errorf("fetching recent messages: %w", err)
	}
	for _, msg := range msgs {
		p.record(ctx, msg)
	}
	log.Info().Int("turns", p.deps.History.Len()).Msg("context pre-populated")
	return nil
}

// Run subscribes to the conversation and drains events serially until the
// context is cancelled or the transport stops
func (p *Pipeline) Run(ctx context.Context) error {
	sessionID, err := p.deps.Transcript.BeginSession(ctx,
		p.deps.Conversation.ID, p.deps.Conversation.DisplayName, string(p.deps.Provider.Name()))
	if err != nil {
		return fmt.Errorf("beginning transcript session: %w", err)
	}
	p.sessionID = sessionID

	updates, err := p.deps.Session.Updates(ctx, p.deps.Conversation)
	if err != nil {
		return fmt.Errorf("subscribing to updates: %w", err)
	}

	log.Info().
		Str("chat", p.deps.Conversation.DisplayName).
		Str("provider", string(p.deps.Provider.Name())).
		Bool("automatic", p.deps.Decisions.Automatic()).
		Msg("listening for messages")

	for msg := range updates {
		if err := p.HandleEvent(ctx, msg); err != nil {
			// A send failure is fatal to its turn only; the operator
			// retries on the next inbound event.
			log.Error().Err(err).Int64("message", msg.ID).Msg("turn failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return ctx.Err()
}

// HandleEvent processes one chat event end to end: record, and for
// peer-authored events, generate and resolve the decision. The returned
// error is non-nil only when delivering an accepted candidate failed.
func (p *Pipeline) HandleEvent(ctx context.Context, msg chat.Message) error {
	if !p.record(ctx, msg) {
		return nil
	}
	if msg.IsSelf {
		// Self-authored events only contribute context.
		return nil
	}

	log.Info().
		Str("from", p.deps.Conversation.DisplayName).
		Str("text", history.Normalize(msg.Text)).
		Msg("message received; generating suggestion")

	// The snapshot is taken after the triggering turn's own append, so the
	// candidate's context always includes the turn that triggered it.
	result, err := p.deps.Provider.Generate(ctx, p.deps.History.Snapshot())
	if err != nil {
		log.Warn().Err(err).Msg("generation skipped")
		return nil
	}

	switch result.Outcome {
	case llm.OutcomeAbsent:
		log.Warn().Msg("no suggestion produced")
		return nil

	case llm.OutcomeBlocked:
		if p.deps.Decisions.Automatic() {
			// A blocked result is never auto-sent; reported only.
			log.Warn().Str("reason", result.Reason).Msg("suggestion blocked by provider")
			return nil
		}
		// Interactively the placeholder is still shown so the operator
		// can see why there is nothing to send, and discard it.
	}

	return p.resolve(ctx, msg, result.Text)
}

func (p *Pipeline) resolve(ctx context.Context, trigger chat.Message, candidate string) error {
	log.Info().Str("suggestion", candidate).Msg("candidate ready")

	res, err := p.deps.Decisions.Resolve(ctx, candidate, func(ctx context.Context, text string) (int64, error) {
		sent, err := p.deps.Session.Send(ctx, p.deps.Conversation, text)
		if err != nil {
			return 0, err
		}
		return sent.ID, nil
	})
	if err != nil {
		return fmt.Errorf("resolving decision for message %d: %w", trigger.ID, err)
	}

	if res.Outcome == decision.Sent {
		p.record(ctx, chat.Message{ID: res.SentID, Text: res.FinalText, IsSelf: true})
		log.Info().Int64("message", res.SentID).Msg("reply sent")
	}

	if err := p.deps.Transcript.RecordDecision(ctx, p.sessionID, trigger.ID, string(res.Outcome), res.FinalText); err != nil {
		log.Warn().Err(err).Msg("archiving decision failed")
	}
	return nil
}

// record normalizes and appends one event to history, mirroring it into the
// transcript archive when it was actually recorded
func (p *Pipeline) record(ctx context.Context, msg chat.Message) bool {
	role := history.RolePeer
	if msg.IsSelf {
		role = history.RoleSelf
	}
	if !p.deps.History.Record(msg.ID, role, msg.Text) {
		log.Debug().Int64("message", msg.ID).Msg("event absorbed (duplicate or empty)")
		return false
	}
	turn := history.Turn{ID: msg.ID, Role: role, Text: history.Normalize(msg.Text)}
	if err := p.deps.Transcript.RecordTurn(ctx, p.sessionID, turn); err != nil {
		log.Warn().Err(err).Int64("message", msg.ID).Msg("archiving turn failed")
	}
	return true
}

// Package prompt builds provider-specific request material from a history snapshot
package prompt

import (
	"errors"
	"strings"

	"github.com/cloud-shuttle/wingman/internal/history"
)

// ErrEmptyContext indicates that no peer turn is available to prompt from.
// Callers must not invoke generation when building fails with this error.
var ErrEmptyContext = errors.New("no peer turns in context")

// Turn delimiter grammar for flattened-prompt backends
const (
	TurnStart = "<start_of_turn>"
	TurnEnd   = "<end_of_turn>"

	// SelfStop is the generic self-identifier stop token that keeps the
	// backend from role-playing both sides of the conversation.
	SelfStop = "Me:"
)

// Template is a flattened prompt string plus the stop sequences that bound it
type Template struct {
	Prompt        string
	StopSequences []string
}

// BuildTemplate renders the turn-template encoding: one framed system block,
// one framed block per turn tagged by role, and an open trailing block for
// the reply to be generated. partnerName is the display name resolved once
// at session start.
func BuildTemplate(turns []history.Turn, systemPrompt, partnerName string) Template {
	var b strings.Builder
	b.WriteString(TurnStart + "system\n" + systemPrompt + TurnEnd + "\n")
	for _, turn := range turns {
		b.WriteString(TurnStart + templateTag(turn.Role) + "\n" + turn.Text + TurnEnd + "\n")
	}
	b.WriteString(TurnStart + "model\n")

	return Template{
		Prompt:        b.String(),
		StopSequences: []string{TurnStart, TurnEnd, partnerName + ":", SelfStop},
	}
}

func templateTag(role history.Role) string {
	if role == history.RoleSelf {
		return "model"
	}
	return "user"
}

// RoleTurn is one entry of the role-array encoding after filtering and merging
type RoleTurn struct {
	Role history.Role
	Text string
}

// BuildRoleArray renders the role-array encoding. The array must begin with a
// peer turn, so any leading run of self-authored turns is dropped, and
// adjacent same-role turns are merged with a newline separator since the
// encoding forbids consecutive entries sharing a role. Returns
// ErrEmptyContext when no turns survive filtering.
func BuildRoleArray(turns []history.Turn) ([]RoleTurn, error) {
	var out []RoleTurn
	for _, turn := range turns {
		if len(out) == 0 && turn.Role == history.RoleSelf {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Role == turn.Role {
			out[len(out)-1].Text += "\n" + turn.Text
			continue
		}
		out = append(out, RoleTurn{Role: turn.Role, Text: turn.Text})
	}
	if len(out) == 0 {
		return nil, ErrEmptyContext
	}
	return out, nil
}

// RoleStops returns the stop sequences for role-array backends
func RoleStops(partnerName string) []string {
	return []string{partnerName + ":", SelfStop}
}

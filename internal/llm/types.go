// Package llm defines the generation client contract shared by all backends
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloud-shuttle/wingman/internal/history"
)

// ProviderType identifies the generation backend
type ProviderType string

const (
	// ProviderKobold is the flattened-prompt backend (KoboldCPP generate API)
	ProviderKobold ProviderType = "kobold"

	// ProviderGemini is the role-array backend (Gemini generateContent API)
	ProviderGemini ProviderType = "gemini"
)

// Outcome classifies the result of one generation attempt
type Outcome string

const (
	// OutcomeCandidate means the backend produced a usable reply
	OutcomeCandidate Outcome = "candidate"

	// OutcomeBlocked means the backend declined to produce content
	OutcomeBlocked Outcome = "blocked"

	// OutcomeAbsent means no suggestion was produced (transport failure,
	// non-success status, or empty/unparseable output)
	OutcomeAbsent Outcome = "absent"
)

// Result is the typed outcome of a generation attempt. Provider failures
// never escape as errors past the client boundary; they fold into an Absent
// or Blocked result.
type Result struct {
	Outcome Outcome
	Text    string
	Reason  string
}

// Candidate wraps a generated reply
func Candidate(text string) Result {
	return Result{Outcome: OutcomeCandidate, Text: text}
}

// Blocked carries a provider refusal. The reason is surfaced as visible
// placeholder text so the operator is never left without feedback.
func Blocked(reason string) Result {
	return Result{
		Outcome: OutcomeBlocked,
		Text:    fmt.Sprintf("[Blocked: %s]", reason),
		Reason:  reason,
	}
}

// Absent signals that no suggestion was produced
func Absent() Result {
	return Result{Outcome: OutcomeAbsent}
}

// Params are the fixed numeric generation parameters for a session. They are
// configuration constants, never derived from content.
type Params struct {
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	MaxLength        int     `yaml:"max_length"`
	MaxContextLength int     `yaml:"max_context_length"`
	MaxOutputTokens  int     `yaml:"max_output_tokens"`
}

// DefaultParams returns the stock generation parameters
func DefaultParams() Params {
	return Params{
		Temperature:      0.7,
		TopP:             0.9,
		MaxLength:        512,
		MaxContextLength: 2048,
		MaxOutputTokens:  1024,
	}
}

// ProviderConfig holds the immutable session configuration for one backend
type ProviderConfig struct {
	Type         ProviderType
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string

	// PartnerName is the conversational partner's display name, resolved
	// once at session start and frozen thereafter.
	PartnerName string

	Params  Params
	Timeout time.Duration
}

// Provider generates a single best-effort completion from a history snapshot.
// Implementations make exactly one network call per Generate, with no
// internal retry. The only error a Provider may return is
// prompt.ErrEmptyContext, raised before any call is made; every other
// failure resolves to an Absent or Blocked result.
type Provider interface {
	// Name returns the provider type
	Name() ProviderType

	// Generate builds the provider-specific payload from the snapshot,
	// performs one request, and parses the best-effort completion
	Generate(ctx context.Context, turns []history.Turn) (Result, error)

	// Validate checks the provider configuration
	Validate() error
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cloud-shuttle/wingman/internal/history"
	"github.com/cloud-shuttle/wingman/internal/llm"
	"github.com/cloud-shuttle/wingman/internal/prompt"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel   = "gemini-3-flash-preview"
)

// GeminiProvider targets the Gemini generateContent API, which accepts a
// structured list of role-tagged turns
type GeminiProvider struct {
	cfg    llm.ProviderConfig
	client *http.Client
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &GeminiProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
	}, nil
}

// Name returns the provider type
func (g *GeminiProvider) Name() llm.ProviderType {
	return llm.ProviderGemini
}

// Validate checks the provider configuration
func (g *GeminiProvider) Validate() error {
	if g.cfg.APIKey == "" {
		return fmt.Errorf("API key is required for gemini provider")
	}
	if !strings.HasPrefix(g.cfg.Endpoint, "http") {
		return fmt.Errorf("invalid base URL for gemini provider: %s", g.cfg.Endpoint)
	}
	return nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	StopSequences   []string `json:"stopSequences"`
}

// geminiRequest is the generateContent request body
type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction geminiContent          `json:"system_instruction"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

// geminiResponse is the generateContent success body
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Generate converts the snapshot to the role-array encoding and performs one
// generateContent call. An empty context (no peer turn to lead the array) is
// returned as prompt.ErrEmptyContext before any call is made; transport and
// parse failures resolve to an Absent result, and a candidate with a finish
// reason but no content resolves to a Blocked result.
func (g *GeminiProvider) Generate(ctx context.Context, turns []history.Turn) (llm.Result, error) {
	roleTurns, err := prompt.BuildRoleArray(turns)
	if err != nil {
		return llm.Result{}, err
	}

	contents := make([]geminiContent, 0, len(roleTurns))
	for _, rt := range roleTurns {
		contents = append(contents, geminiContent{
			Role:  geminiRole(rt.Role),
			Parts: []geminiPart{{Text: rt.Text}},
		})
	}

	reqBody := geminiRequest{
		Contents: contents,
		SystemInstruction: geminiContent{
			Parts: []geminiPart{{Text: g.cfg.SystemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.cfg.Params.Temperature,
			MaxOutputTokens: g.cfg.Params.MaxOutputTokens,
			StopSequences:   prompt.RoleStops(g.cfg.PartnerName),
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		log.Error().Err(err).Msg("marshaling gemini request")
		return llm.Absent(), nil
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		g.cfg.Endpoint, g.cfg.Model, url.QueryEscape(g.cfg.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("creating gemini request")
		return llm.Absent(), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Msg("gemini request failed")
		return llm.Absent(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("gemini non-success status")
		return llm.Absent(), nil
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warn().Err(err).Msg("parsing gemini response")
		return llm.Absent(), nil
	}

	if len(parsed.Candidates) == 0 {
		return llm.Absent(), nil
	}

	candidate := parsed.Candidates[0]
	if len(candidate.Content.Parts) > 0 {
		text := strings.TrimSpace(candidate.Content.Parts[0].Text)
		if text != "" {
			return llm.Candidate(text), nil
		}
	}
	if candidate.FinishReason != "" {
		return llm.Blocked(candidate.FinishReason), nil
	}
	return llm.Absent(), nil
}

func geminiRole(role history.Role) string {
	if role == history.RoleSelf {
		return "model"
	}
	return "user"
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cloud-shuttle/wingman/internal/history"
	"github.com/cloud-shuttle/wingman/internal/llm"
	"github.com/cloud-shuttle/wingman/internal/prompt"
)

const defaultKoboldURL = "http://localhost:5001/api/v1/generate"

// KoboldProvider targets the KoboldCPP generate API, which accepts a single
// flattened prompt string
type KoboldProvider struct {
	cfg    llm.ProviderConfig
	client *http.Client
}

// NewKoboldProvider creates a KoboldCPP provider
func NewKoboldProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultKoboldURL
	}
	return &KoboldProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
	}, nil
}

// Name returns the provider type
func (k *KoboldProvider) Name() llm.ProviderType {
	return llm.ProviderKobold
}

// Validate checks the provider configuration
func (k *KoboldProvider) Validate() error {
	if !strings.HasPrefix(k.cfg.Endpoint, "http") {
		return fmt.Errorf("invalid endpoint URL for kobold provider: %s", k.cfg.Endpoint)
	}
	return nil
}

// koboldRequest is the KoboldCPP generate API request body
type koboldRequest struct {
	Prompt           string   `json:"prompt"`
	MaxContextLength int      `json:"max_context_length"`
	MaxLength        int      `json:"max_length"`
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"top_p"`
	StopSequence     []string `json:"stop_sequence"`
}

// koboldResponse is the KoboldCPP generate API success body
type koboldResponse struct {
	Results []struct {
		Text string `json:"text"`
	} `json:"results"`
}

// Generate flattens the snapshot into the turn-template encoding and performs
// one generate call. All transport and parse failures resolve to an Absent
// result.
func (k *KoboldProvider) Generate(ctx context.Context, turns []history.Turn) (llm.Result, error) {
	tpl := prompt.BuildTemplate(turns, k.cfg.SystemPrompt, k.cfg.PartnerName)

	reqBody := koboldRequest{
		Prompt:           tpl.Prompt,
		MaxContextLength: k.cfg.Params.MaxContextLength,
		MaxLength:        k.cfg.Params.MaxLength,
		Temperature:      k.cfg.Params.Temperature,
		TopP:             k.cfg.Params.TopP,
		StopSequence:     tpl.StopSequences,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		log.Error().Err(err).Msg("marshaling kobold request")
		return llm.Absent(), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("creating kobold request")
		return llm.Absent(), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Msg("kobold request failed")
		return llm.Absent(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("kobold non-success status")
		return llm.Absent(), nil
	}

	var parsed koboldResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warn().Err(err).Msg("parsing kobold response")
		return llm.Absent(), nil
	}

	if len(parsed.Results) == 0 {
		return llm.Absent(), nil
	}
	text := strings.TrimSpace(parsed.Results[0].Text)
	if text == "" {
		return llm.Absent(), nil
	}
	return llm.Candidate(text), nil
}

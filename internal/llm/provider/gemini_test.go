package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-shuttle/wingman/internal/history"
	"github.com/cloud-shuttle/wingman/internal/llm"
	"github.com/cloud-shuttle/wingman/internal/prompt"
)

func geminiConfig(endpoint string) llm.ProviderConfig {
	return llm.ProviderConfig{
		Type:         llm.ProviderGemini,
		Endpoint:     endpoint,
		Model:        "test-model",
		APIKey:       "test-key",
		SystemPrompt: "be brief",
		PartnerName:  "Alice",
		Params:       llm.DefaultParams(),
	}
}

func TestGeminiGenerateCandidate(t *testing.T) {
	var captured geminiRequest
	var capturedPath, capturedKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": " hi there "}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewGeminiProvider(geminiConfig(server.URL))
	require.NoError(t, err)

	result, err := p.Generate(context.Background(), []history.Turn{
		{ID: 1, Role: history.RolePeer, Text: "a"},
		{ID: 2, Role: history.RolePeer, Text: "b"},
		{ID: 3, Role: history.RoleSelf, Text: "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, llm.OutcomeCandidate, result.Outcome)
	assert.Equal(t, "hi there", result.Text)

	assert.Equal(t, "/test-model:generateContent", capturedPath)
	assert.Equal(t, "test-key", capturedKey)

	// Adjacent peer turns are merged; the array starts with the user role.
	require.Len(t, captured.Contents, 2)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "a\nb", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", captured.Contents[1].Role)

	// System instruction travels as a separate field, not in the array.
	require.Len(t, captured.SystemInstruction.Parts, 1)
	assert.Equal(t, "be brief", captured.SystemInstruction.Parts[0].Text)

	assert.Equal(t, 1024, captured.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, []string{"Alice:", "Me:"}, captured.GenerationConfig.StopSequences)
}

func TestGeminiGenerateEmptyContext(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	p, err := NewGeminiProvider(geminiConfig(server.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), []history.Turn{
		{ID: 1, Role: history.RoleSelf, Text: "only me"},
	})
	assert.ErrorIs(t, err, prompt.ErrEmptyContext)
	assert.False(t, called, "no call must be made when building fails")
}

func TestGeminiGenerateBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY"}]}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(geminiConfig(server.URL))
	require.NoError(t, err)

	result, err := p.Generate(context.Background(), []history.Turn{
		{ID: 1, Role: history.RolePeer, Text: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, llm.OutcomeBlocked, result.Outcome)
	assert.Equal(t, "SAFETY", result.Reason)
	assert.Equal(t, "[Blocked: SAFETY]", result.Text)
}

func TestGeminiGenerateNoCandidatesIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(geminiConfig(server.URL))
	require.NoError(t, err)

	result, err := p.Generate(context.Background(), []history.Turn{
		{ID: 1, Role: history.RolePeer, Text: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, llm.OutcomeAbsent, result.Outcome)
}

func TestGeminiGenerateNonSuccessStatusIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"key invalid"}}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(geminiConfig(server.URL))
	require.NoError(t, err)

	result, err := p.Generate(context.Background(), []history.Turn{
		{ID: 1, Role: history.RolePeer, Text: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, llm.OutcomeAbsent, result.Outcome)
}

func TestGeminiValidate(t *testing.T) {
	cfg := geminiConfig("http://example.com")
	cfg.APIKey = ""
	p, err := NewGeminiProvider(cfg)
	require.NoError(t, err)
	assert.Error(t, p.Validate())
}

func TestRegistryCreate(t *testing.T) {
	_, err := Create(llm.ProviderConfig{Type: "unknown"})
	assert.Error(t, err)

	p, err := Create(geminiConfig("http://example.com"))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, p.Name())

	p, err = Create(koboldConfig(""))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderKobold, p.Name())
}

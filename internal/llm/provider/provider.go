// Package provider implements the generation backends
package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cloud-shuttle/wingman/internal/llm"
)

// Factory creates a provider from its configuration
type Factory func(cfg llm.ProviderConfig) (llm.Provider, error)

// Registry holds all registered provider factories
var Registry = map[llm.ProviderType]Factory{
	llm.ProviderKobold: NewKoboldProvider,
	llm.ProviderGemini: NewGeminiProvider,
}

// Create creates and validates a provider from its configuration
func Create(cfg llm.ProviderConfig) (llm.Provider, error) {
	factory, ok := Registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Type, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s provider config: %w", cfg.Type, err)
	}
	return p, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

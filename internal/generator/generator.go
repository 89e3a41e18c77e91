// Package generator talks to the LLM that writes quest content. Providers
// return the raw JSON object text of a quest; parsing and defaulting happen in
// the services layer because model output is not schema-guaranteed.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-quest-backend/internal/config"
)

// Request carries the normalized generation parameters.
type Request struct {
	Theme      string // free-text task description
	Complexity string // easy|medium|hard
	Length     string // short|medium|long
}

// Generator produces quest JSON for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// ErrEmptyResponse is returned when the provider answered without content.
var ErrEmptyResponse = errors.New("generator returned no content")

// New builds the provider selected by cfg.Provider.
func New(cfg config.GeneratorConfig) (Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			RPS:     cfg.RPS,
		}), nil
	case "gemini":
		return NewGemini(context.Background(), GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// StripCodeFences removes a surrounding ``` or ```json fence that models
// sometimes wrap JSON in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line (e.g. "json")
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

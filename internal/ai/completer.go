// Package ai wraps the genkit/Gemini completion API behind a small
// interface the rest of the application can mock.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/pensieve-cli/pensieve/internal/log"
)

// Completer generates model responses.
type Completer interface {
	// Complete returns the full response for a prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteStream streams the response, calling onDelta for each text
	// fragment as it arrives, and returns the full response.
	CompleteStream(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error)
}

// GeminiCompleter is a Completer backed by a Gemini model through genkit.
type GeminiCompleter struct {
	g      *genkit.Genkit
	model  string
	system string
	logger log.Logger
}

// NewGeminiCompleter creates a completer for the given model name, e.g.
// "googleai/gemini-2.5-flash". system is the persona prompt prepended to
// every generation; empty means none.
func NewGeminiCompleter(g *genkit.Genkit, model, system string, logger log.Logger) *GeminiCompleter {
	return &GeminiCompleter{g: g, model: model, system: system, logger: logger}
}

// Complete implements Completer.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, nil)
}

// CompleteStream implements Completer.
func (c *GeminiCompleter) CompleteStream(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error) {
	return c.generate(ctx, prompt, onDelta)
}

func (c *GeminiCompleter) generate(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithPrompt(prompt),
	}
	if c.system != "" {
		opts = append(opts, ai.WithSystem(c.system))
	}
	if onDelta != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			return onDelta(chunk.Text())
		}))
	}

	response, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	text := strings.TrimSpace(response.Text())
	c.logger.Debug("generated response", "model", c.model, "chars", len(text))
	return text, nil
}

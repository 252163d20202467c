package coach

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"titan/pkg/config"
)

const defaultModel = "gemini-3-flash-preview"

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a client. An empty API key is an error; callers treat
// it as "coach unavailable".
func NewGemini(ctx context.Context, cfg config.CoachConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var cfg *genai.GenerateContentConfig
	if opts.Temperature > 0 || opts.TopP > 0 {
		cfg = &genai.GenerateContentConfig{}
		if opts.Temperature > 0 {
			cfg.Temperature = genai.Ptr(opts.Temperature)
		}
		if opts.TopP > 0 {
			cfg.TopP = genai.Ptr(opts.TopP)
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

// Name returns the engine name.
func (g *Gemini) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}

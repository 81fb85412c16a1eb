package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Engine struct {
	model  string
	client *genai.Client
	gm     *genai.GenerativeModel
}

// New creates the Gemini client once; call Close on shutdown.
func New(ctx context.Context, apiKey, model string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	model = strings.TrimSpace(model)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	if model == "" {
		return nil, errors.New("gemini: model is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	gm := cl.GenerativeModel(model)
	if gm == nil {
		_ = cl.Close()
		return nil, fmt.Errorf("gemini: model is nil")
	}
	gm.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	return &Engine{model: model, client: cl, gm: gm}, nil
}

func (e *Engine) Name() string  { return "gemini" }
func (e *Engine) Model() string { return e.model }

func (e *Engine) Close() error { return e.client.Close() }

// Generate sends the prompt as a single text part and returns the first text part of the answer.
func (e *Engine) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := e.gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", errors.New("gemini generate: empty response")
	}
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

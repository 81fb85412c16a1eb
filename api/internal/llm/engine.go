package llm

import "context"

// Engine is a text-in, text-out generation client.
type Engine interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Engine. Handy for stubs and local tools.
type Func struct {
	EngineName string
	ModelName  string
	Fn         func(ctx context.Context, prompt string) (string, error)
}

func (f Func) Name() string {
	if f.EngineName == "" {
		return "func"
	}
	return f.EngineName
}

func (f Func) Model() string { return f.ModelName }

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f.Fn(ctx, prompt)
}

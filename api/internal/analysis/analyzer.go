package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"complexity-analyzer/api/internal/llm"
	"complexity-analyzer/api/internal/logging"
)

// Analyzer runs one snippet through the prompt, the model and the response normalizer.
type Analyzer struct {
	engine llm.Engine
	log    *zap.Logger
	strict bool
}

// New returns an Analyzer. With strict set, answers missing any of the three keys
// fail with SchemaValidationError instead of being passed through partially filled.
func New(engine llm.Engine, log *zap.Logger, strict bool) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{engine: engine, log: log, strict: strict}
}

// Analyze logs through the request logger carried by ctx when there is one.
func (a *Analyzer) Analyze(ctx context.Context, code string) (Result, error) {
	if err := validate.Struct(Request{Code: code}); err != nil {
		return Result{}, &ValidationError{Msg: MsgNoCode}
	}

	log := logging.From(ctx, a.log).With(
		zap.String("engine", a.engine.Name()),
		zap.String("model", a.engine.Model()),
		zap.Int("code_len", len(code)),
	)

	start := time.Now()
	raw, err := a.engine.Generate(ctx, BuildPrompt(code))
	if err != nil {
		log.Error("generation failed", zap.Duration("latency", time.Since(start)), zap.Error(err))
		return Result{}, &TransportError{Provider: a.engine.Name(), Err: err}
	}
	log.Debug("generation done", zap.Duration("latency", time.Since(start)), zap.Int("raw_len", len(raw)))

	candidate := ExtractJSON(raw)

	var res Result
	if a.strict {
		res, err = ParseStrict(candidate)
	} else {
		res, err = ParseResult(candidate)
	}
	if err != nil {
		var fe *ResponseFormatError
		var se *SchemaValidationError
		switch {
		case errors.As(err, &fe), errors.As(err, &se):
			log.Warn("unusable model response", zap.String("raw", raw), zap.Error(err))
		default:
			log.Error("parse failed", zap.Error(err))
		}
		return Result{}, err
	}
	return res, nil
}

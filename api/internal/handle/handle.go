package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"complexity-analyzer/api/internal/analysis"
)

type Analyzer interface {
	Analyze(ctx context.Context, code string) (analysis.Result, error)
}

type Handle struct {
	an      Analyzer
	log     *zap.Logger
	timeout time.Duration
	maxBody int64
}

type Options struct {
	// Timeout bounds the model call; zero leaves it to the client connection.
	Timeout      time.Duration
	MaxBodyBytes int64
}

func New(an Analyzer, log *zap.Logger, opt Options) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.MaxBodyBytes <= 0 {
		opt.MaxBodyBytes = 1 << 20
	}
	return &Handle{
		an:      an,
		log:     log,
		timeout: opt.Timeout,
		maxBody: opt.MaxBodyBytes,
	}
}

// Routes registers the analyze handler on every given path plus /healthz
// and wraps the mux with request id, recovery and CORS middleware.
func (h *Handle) Routes(analyzePaths ...string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	seen := map[string]bool{}
	for _, p := range analyzePaths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		mux.HandleFunc(p, h.Analyze)
	}
	return requestID(h.log, h.recoverer(cors(mux)))
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"complexity-analyzer/api/internal/analysis"
	"complexity-analyzer/api/internal/logging"
)

const (
	msgBadJSON          = "Invalid JSON body"
	msgBodyTooLarge     = "Request body too large"
	msgMethodNotAllowed = "Method not allowed"
)

func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	log := logging.From(r.Context(), h.log)

	var req analysis.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		log.Info("bad request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	out, err := h.an.Analyze(ctx, req.Code)
	if err != nil {
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError && !isAnalysisError(err) {
			log.Error("analyze failed", zap.Int("status", code), zap.Error(err))
		}
		writeError(w, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// statusFor maps the analysis error set onto the public HTTP contract.
// Model output never reaches the client.
func statusFor(err error) (int, string) {
	var (
		ve *analysis.ValidationError
		fe *analysis.ResponseFormatError
		se *analysis.SchemaValidationError
		te *analysis.TransportError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.As(err, &fe), errors.As(err, &se):
		return http.StatusInternalServerError, analysis.MsgParseFailed
	case errors.As(err, &te):
		return http.StatusInternalServerError, te.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// isAnalysisError reports whether err belongs to the analysis error set.
// The analyzer logs those itself with engine and latency fields.
func isAnalysisError(err error) bool {
	var (
		ve *analysis.ValidationError
		fe *analysis.ResponseFormatError
		se *analysis.SchemaValidationError
		te *analysis.TransportError
	)
	return errors.As(err, &ve) || errors.As(err, &fe) || errors.As(err, &se) || errors.As(err, &te)
}

// Package handler is the thin HTTP layer for the security-event webhook.
// The provider expects a fast acknowledgment, so the default path responds
// 202 before verification and dispatch run.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"riscguard/internal/risc"
	dErrors "riscguard/pkg/domain-errors"
	"riscguard/pkg/platform/httputil"
	"riscguard/pkg/requestcontext"
)

// processTimeout bounds background verification and dispatch after the
// webhook has already been acknowledged.
const processTimeout = 30 * time.Second

// Service defines the pipeline operations the handler delegates to.
type Service interface {
	ProcessToken(ctx context.Context, raw string) ([]risc.EventOutcome, risc.VerificationResult)
}

// Handler wires the webhook endpoint to the pipeline service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	maxBodyBytes int64
}

// New constructs the webhook handler.
func New(service Service, logger *slog.Logger, maxBodyBytes int64) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register mounts the webhook endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/security/events", h.HandleEvents)
}

// HandleEvents receives one compact security event token as the request
// body. It acknowledges with 202 and processes asynchronously; failures are
// logged and audited, never silently dropped. With ?sync=1 the pipeline
// runs inline and the outcomes come back in the response body, which is how
// the provider's test events and our own tests observe results.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/secevent+jwt") && !strings.HasPrefix(ct, "application/jwt") {
		h.logger.WarnContext(ctx, "unexpected webhook content type", "request_id", requestID, "content_type", ct)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body exceeds limit"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body"))
		return
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "empty request body"))
		return
	}

	if r.URL.Query().Get("sync") == "1" {
		h.processSync(ctx, w, token)
		return
	}

	// Fast ack: the provider redelivers on slow responses, so respond
	// before doing any network-bound work.
	go h.processAsync(token, requestID)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) processSync(ctx context.Context, w http.ResponseWriter, token string) {
	outcomes, result := h.service.ProcessToken(ctx, token)
	if !result.Valid {
		httputil.WriteError(w, verificationError(result))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func (h *Handler) processAsync(token, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()
	ctx = requestcontext.WithRequestID(ctx, requestID)

	outcomes, result := h.service.ProcessToken(ctx, token)
	if !result.Valid {
		// Already logged at error level by the verifier; nothing further
		// to do for an untrusted delivery.
		return
	}

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success {
			failed++
		}
	}
	h.logger.Info("security event token processed",
		"request_id", requestID,
		"events", len(outcomes),
		"failed", failed,
	)
}

// verificationError maps a rejection onto the domain error taxonomy so the
// sync path reports a meaningful status.
func verificationError(result risc.VerificationResult) error {
	detail := string(result.Reason)
	if result.Detail != "" {
		detail = result.Detail
	}
	switch result.Reason {
	case risc.ReasonMalformedToken:
		return dErrors.New(dErrors.CodeBadRequest, detail)
	case risc.ReasonKeyFetchFailed:
		return dErrors.New(dErrors.CodeUnavailable, detail)
	default:
		return dErrors.New(dErrors.CodeUnauthorized, detail)
	}
}

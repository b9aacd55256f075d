package risc

import (
	"context"
	"log/slog"

	"riscguard/internal/risc/metrics"
)

// Service is the pipeline facade the transport layer calls: verify a raw
// token, then dispatch its events if and only if verification succeeded.
type Service struct {
	verifier   *Verifier
	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewService wires the verifier and dispatcher into one entry point.
func NewService(verifier *Verifier, dispatcher *Dispatcher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
	}
}

// ProcessToken runs the full pipeline on one raw token. An invalid token
// rejects the whole delivery: no events are processed and the returned
// outcomes are nil.
func (s *Service) ProcessToken(ctx context.Context, raw string) ([]EventOutcome, VerificationResult) {
	s.metrics.IncrementTokensReceived()

	result := s.verifier.Verify(ctx, raw)
	if !result.Valid {
		return nil, result
	}

	return s.dispatcher.Process(ctx, result.Payload), result
}

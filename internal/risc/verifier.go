package risc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"riscguard/internal/risc/keys"
	"riscguard/internal/risc/metrics"
	"riscguard/pkg/platform/sentinel"
	"riscguard/pkg/requestcontext"
)

// SupportedAlgorithm is the only signing algorithm accepted. Checked before
// any network call so unsupported tokens cost nothing.
const SupportedAlgorithm = "RS256"

// KeyProvider locates a provider public key by id. A lookup miss after the
// provider's refresh-once discipline is sentinel.ErrNotFound; anything else
// is a fetch failure.
type KeyProvider interface {
	Lookup(ctx context.Context, kid string) (JSONWebKey, error)
}

// Verifier checks a raw token's signature and claims. It short-circuits on
// the first failure and returns a tagged result; it never panics or throws
// past its boundary.
type Verifier struct {
	keys      KeyProvider
	issuer    string
	audience  string
	clockSkew time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewVerifier constructs a verifier for the expected issuer and audience.
func NewVerifier(provider KeyProvider, issuer, audience string, clockSkew time.Duration, logger *slog.Logger, m *metrics.Metrics) *Verifier {
	return &Verifier{
		keys:      provider,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		logger:    logger,
		metrics:   m,
	}
}

// Verify runs the full verification state machine: parse, algorithm gate,
// key lookup, signature check, then claims validation. Claims are checked
// only after the signature is trusted.
func (v *Verifier) Verify(ctx context.Context, token string) VerificationResult {
	result := v.verify(ctx, token)
	if !result.Valid {
		v.logger.ErrorContext(ctx, "token verification failed",
			"reason", string(result.Reason),
			"detail", result.Detail,
		)
		v.metrics.IncrementVerificationFailure(string(result.Reason))
	} else {
		v.metrics.IncrementTokensVerified()
	}
	return result
}

func (v *Verifier) verify(ctx context.Context, token string) VerificationResult {
	parsed, err := ParseUnverified(token)
	if err != nil {
		return Reject(ReasonMalformedToken, err.Error())
	}

	if parsed.Header.Alg != SupportedAlgorithm {
		return Reject(ReasonUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm: %s", parsed.Header.Alg))
	}

	key, err := v.keys.Lookup(ctx, parsed.Header.Kid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Reject(ReasonKeyNotFound, fmt.Sprintf("no matching key for kid: %s", parsed.Header.Kid))
		}
		return Reject(ReasonKeyFetchFailed, err.Error())
	}

	pemBlock, err := keys.FromJWK(key.KeyType, key.Modulus, key.Exponent)
	if err != nil {
		// A key we cannot reconstruct cannot verify anything signed with it.
		return Reject(ReasonKeyNotFound, fmt.Sprintf("unusable key %s: %v", key.KeyID, err))
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemBlock))
	if err != nil {
		return Reject(ReasonKeyNotFound, fmt.Sprintf("parse reconstructed key %s: %v", key.KeyID, err))
	}

	if err := jwt.SigningMethodRS256.Verify(parsed.SigningInput(), parsed.Signature, publicKey); err != nil {
		return Reject(ReasonInvalidSignature, "signature does not match")
	}

	return v.validateClaims(ctx, &parsed.Payload)
}

// validateClaims checks issuer, audience, and freshness on a
// signature-valid payload. There is no upper bound on token age: security
// notifications do not expire.
func (v *Verifier) validateClaims(ctx context.Context, payload *SecurityEventToken) VerificationResult {
	if payload.Issuer != v.issuer {
		return Reject(ReasonInvalidIssuer, fmt.Sprintf("expected issuer %s, got %s", v.issuer, payload.Issuer))
	}
	if payload.Audience != v.audience {
		return Reject(ReasonInvalidAudience, fmt.Sprintf("audience mismatch: %s", payload.Audience))
	}

	now := requestcontext.Now(ctx).Unix()
	if payload.IssuedAt > now+int64(v.clockSkew.Seconds()) {
		return Reject(ReasonTokenFromFuture, fmt.Sprintf("token issued in the future: iat=%d now=%d", payload.IssuedAt, now))
	}

	return Accept(payload)
}

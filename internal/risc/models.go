// Package risc implements the security-event verification and dispatch
// pipeline for provider push notifications (Cross-Account Protection).
// A raw Security Event Token flows through parse, signature verification,
// claims validation, and event dispatch; each stage returns typed results
// so invalid states are unrepresentable downstream.
package risc

// Known security event type URIs pushed by the provider.
const (
	EventTypeTokensRevoked            = "https://schemas.openid.net/secevent/oauth/event-type/tokens-revoked"
	EventTypeTokenRevoked             = "https://schemas.openid.net/secevent/oauth/event-type/token-revoked"
	EventTypeSessionsRevoked          = "https://schemas.openid.net/secevent/risc/event-type/sessions-revoked"
	EventTypeAccountDisabled          = "https://schemas.openid.net/secevent/risc/event-type/account-disabled"
	EventTypeAccountEnabled           = "https://schemas.openid.net/secevent/risc/event-type/account-enabled"
	EventTypeCredentialChangeRequired = "https://schemas.openid.net/secevent/risc/event-type/account-credential-change-required"
	EventTypeAccountPurged            = "https://schemas.openid.net/secevent/risc/event-type/account-purged"
	EventTypeVerification             = "https://schemas.openid.net/secevent/risc/event-type/verification"
)

// SubjectTypeIssSub is the only subject type the provider sends: an opaque
// account identifier scoped to its issuer.
const SubjectTypeIssSub = "iss-sub"

// Outcome actions reported per processed event.
const (
	ActionTokensRevoked                 = "tokens_revoked"
	ActionTokenRevoked                  = "token_revoked"
	ActionSessionRevoked                = "session_revoked"
	ActionAccountSuspended              = "account_suspended"
	ActionLoggedAccountEnabled          = "logged_account_enabled"
	ActionTokensRevokedCredentialChange = "tokens_revoked_credential_change"
	ActionTokensRevokedAccountPurged    = "tokens_revoked_account_purged"
	ActionNoActionUserNotFound          = "no_action_user_not_found"
	ActionVerificationAcknowledged      = "verification_acknowledged"
	ActionIgnoredUnknownEvent           = "ignored_unknown_event"
	ActionFailedNoSubjectID             = "failed_no_subject_id"
	ActionFailedUserNotFound            = "failed_user_not_found"
	ActionFailedRepository              = "failed_repository_error"
	ActionLoggedNoAction                = "logged_no_action"
)

// Subject identifies the affected account within an event.
type Subject struct {
	SubjectType string `json:"subject_type"`
	Issuer      string `json:"iss,omitempty"`
	Subject     string `json:"sub,omitempty"`
}

// EventData is the per-event payload. All fields are optional; the provider
// sends at most one subject per event entry.
type EventData struct {
	Subject            *Subject `json:"subject,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	TokenIdentifierAlg string   `json:"token_identifier_alg,omitempty"`
	TokenIdentifier    string   `json:"token_identifier,omitempty"`
	EventTime          int64    `json:"event_time,omitempty"`
}

// SecurityEventToken is the decoded payload of a SET. Events maps event
// type URIs to their data; empty is well-formed and yields zero outcomes.
// Tokens carry no expiry: they are point-in-time notifications.
type SecurityEventToken struct {
	Issuer   string               `json:"iss"`
	Audience string               `json:"aud"`
	IssuedAt int64                `json:"iat"`
	ID       string               `json:"jti"`
	Events   map[string]EventData `json:"events"`
}

// SubjectID scans the token's events for an iss-sub subject and returns its
// opaque account identifier, or "" when no event carries one. The provider
// sends at most one meaningful subject per token; the same identifier is
// propagated to every handler.
func (t *SecurityEventToken) SubjectID() string {
	for _, data := range t.Events {
		if data.Subject != nil && data.Subject.SubjectType == SubjectTypeIssSub && data.Subject.Subject != "" {
			return data.Subject.Subject
		}
	}
	return ""
}

// Header is the decoded, untrusted token header.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ,omitempty"`
}

// JSONWebKey is one published provider key. Modulus and exponent are
// base64url big-endian unsigned integers.
type JSONWebKey struct {
	KeyType   string `json:"kty"`
	Algorithm string `json:"alg,omitempty"`
	Use       string `json:"use,omitempty"`
	KeyID     string `json:"kid"`
	Modulus   string `json:"n"`
	Exponent  string `json:"e"`
}

// JSONWebKeySet is the provider's published key set.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// FailureReason classifies why token verification was rejected. Any reason
// aborts the whole token; no events are processed.
type FailureReason string

const (
	ReasonMalformedToken       FailureReason = "malformed_token"
	ReasonUnsupportedAlgorithm FailureReason = "unsupported_algorithm"
	ReasonKeyFetchFailed       FailureReason = "key_fetch_failed"
	ReasonKeyNotFound          FailureReason = "key_not_found"
	ReasonInvalidSignature     FailureReason = "invalid_signature"
	ReasonInvalidIssuer        FailureReason = "invalid_issuer"
	ReasonInvalidAudience      FailureReason = "invalid_audience"
	ReasonTokenFromFuture      FailureReason = "token_from_future"
)

// VerificationResult is the tagged outcome of token verification: either a
// trusted payload or a reason plus human-readable detail.
type VerificationResult struct {
	Valid   bool
	Payload *SecurityEventToken
	Reason  FailureReason
	Detail  string
}

// Accept builds a valid result carrying the trusted payload.
func Accept(payload *SecurityEventToken) VerificationResult {
	return VerificationResult{Valid: true, Payload: payload}
}

// Reject builds an invalid result with a classification and detail.
func Reject(reason FailureReason, detail string) VerificationResult {
	return VerificationResult{Reason: reason, Detail: detail}
}

// EventOutcome reports the handling of one event from one token. Outcomes
// are never persisted; they exist for the response and the audit trail.
type EventOutcome struct {
	Success   bool   `json:"success"`
	EventType string `json:"event_type"`
	SubjectID string `json:"subject_id,omitempty"`
	Action    string `json:"action"`
	Error     string `json:"error,omitempty"`
}

package risc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ParsedToken is the untrusted split of a compact SET. RawHeader and
// RawPayload keep the exact base64url segments because the signature covers
// those bytes, not the decoded JSON.
type ParsedToken struct {
	Header     Header
	Payload    SecurityEventToken
	RawHeader  string
	RawPayload string
	Signature  []byte
}

// SigningInput returns the exact byte sequence the signature was computed
// over.
func (p *ParsedToken) SigningInput() string {
	return p.RawHeader + "." + p.RawPayload
}

// ParseUnverified splits a compact token into header, payload, and
// signature without making any trust decision. Anything other than exactly
// three decodable segments is a malformed token.
func ParseUnverified(token string) (*ParsedToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 token segments, got %d", len(parts))
	}
	if parts[2] == "" {
		return nil, fmt.Errorf("missing signature segment")
	}

	parsed := &ParsedToken{RawHeader: parts[0], RawPayload: parts[1]}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &parsed.Header); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(payloadJSON, &parsed.Payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	parsed.Signature, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	return parsed, nil
}

package risc

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestParseUnverified(t *testing.T) {
	header := segment(`{"alg":"RS256","kid":"key-1","typ":"secevent+jwt"}`)
	payload := segment(`{"iss":"https://accounts.google.com","aud":"client-123","iat":1700000000,"jti":"token-1","events":{}}`)
	signature := segment("raw-signature-bytes")

	t.Run("splits a well-formed token", func(t *testing.T) {
		parsed, err := ParseUnverified(header + "." + payload + "." + signature)
		require.NoError(t, err)

		assert.Equal(t, "RS256", parsed.Header.Alg)
		assert.Equal(t, "key-1", parsed.Header.Kid)
		assert.Equal(t, "https://accounts.google.com", parsed.Payload.Issuer)
		assert.Equal(t, "client-123", parsed.Payload.Audience)
		assert.Equal(t, "token-1", parsed.Payload.ID)
		assert.Equal(t, []byte("raw-signature-bytes"), parsed.Signature)
		assert.Equal(t, header+"."+payload, parsed.SigningInput())
	})

	t.Run("rejects wrong segment counts", func(t *testing.T) {
		for _, token := range []string{
			header + "." + payload,
			header + "." + payload + "." + signature + "." + signature,
			"",
			"no-dots-at-all",
		} {
			_, err := ParseUnverified(token)
			assert.Error(t, err, "token %q", token)
		}
	})

	t.Run("rejects empty signature segment", func(t *testing.T) {
		_, err := ParseUnverified(header + "." + payload + ".")
		assert.Error(t, err)
	})

	t.Run("rejects undecodable header", func(t *testing.T) {
		_, err := ParseUnverified("!!!." + payload + "." + signature)
		assert.Error(t, err)
	})

	t.Run("rejects header that is not JSON", func(t *testing.T) {
		_, err := ParseUnverified(segment("not json") + "." + payload + "." + signature)
		assert.Error(t, err)
	})

	t.Run("rejects payload that is not JSON", func(t *testing.T) {
		_, err := ParseUnverified(header + "." + segment("{broken") + "." + signature)
		assert.Error(t, err)
	})

	t.Run("decodes event payloads with subjects", func(t *testing.T) {
		body := `{"iss":"i","aud":"a","iat":1,"jti":"j","events":{` +
			`"` + EventTypeTokensRevoked + `":{"subject":{"subject_type":"iss-sub","iss":"https://accounts.google.com","sub":"1234567890"}}}}`
		parsed, err := ParseUnverified(header + "." + segment(body) + "." + signature)
		require.NoError(t, err)

		data, ok := parsed.Payload.Events[EventTypeTokensRevoked]
		require.True(t, ok)
		require.NotNil(t, data.Subject)
		assert.Equal(t, SubjectTypeIssSub, data.Subject.SubjectType)
		assert.Equal(t, "1234567890", data.Subject.Subject)
		assert.Equal(t, "1234567890", parsed.Payload.SubjectID())
	})
}

func TestSubjectID(t *testing.T) {
	t.Run("empty when no event carries a subject", func(t *testing.T) {
		token := SecurityEventToken{Events: map[string]EventData{
			EventTypeVerification: {},
		}}
		assert.Empty(t, token.SubjectID())
	})

	t.Run("ignores non iss-sub subject types", func(t *testing.T) {
		token := SecurityEventToken{Events: map[string]EventData{
			EventTypeTokensRevoked: {Subject: &Subject{SubjectType: "email", Subject: "x@example.com"}},
		}}
		assert.Empty(t, token.SubjectID())
	})

	t.Run("finds the iss-sub subject across events", func(t *testing.T) {
		token := SecurityEventToken{Events: map[string]EventData{
			EventTypeVerification:  {},
			EventTypeTokensRevoked: {Subject: &Subject{SubjectType: SubjectTypeIssSub, Subject: "sub-42"}},
		}}
		assert.Equal(t, "sub-42", token.SubjectID())
	})
}

func TestParseUnverifiedMakesNoTrustDecision(t *testing.T) {
	// A token with a garbage signature still parses; rejecting it is the
	// verifier's job.
	header := segment(`{"alg":"none","kid":""}`)
	payload := segment(`{"iss":"attacker","aud":"whoever","iat":9999999999}`)
	parsed, err := ParseUnverified(header + "." + payload + "." + segment("x"))
	require.NoError(t, err)
	assert.Equal(t, "none", parsed.Header.Alg)
	assert.True(t, strings.HasPrefix(parsed.SigningInput(), header))
}

// Package keys reconstructs an RSA public key PEM block from the raw
// modulus and exponent published in a JWK. The DER structure is built
// byte-for-byte (ASN.1 INTEGER, SEQUENCE, BIT STRING, SubjectPublicKeyInfo)
// so the output is exactly what signature verifiers expect.
//
// The package is pure: no network, no clock, no process state.
package keys

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrUnsupportedKeyType is returned when a JWK declares a key type other
// than RSA.
var ErrUnsupportedKeyType = errors.New("unsupported key type")

// rsaAlgorithmIdentifier is the fixed AlgorithmIdentifier SEQUENCE for
// rsaEncryption: OID 1.2.840.113549.1.1.1 followed by NULL parameters.
var rsaAlgorithmIdentifier = []byte{
	0x30, 0x0d,
	0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01,
	0x05, 0x00,
}

// BuildPublicKeyPEM assembles a SubjectPublicKeyInfo DER structure from the
// big-endian unsigned modulus and exponent bytes and returns it framed as a
// standard PEM PUBLIC KEY block.
func BuildPublicKeyPEM(modulus, exponent []byte) string {
	// RSAPublicKey ::= SEQUENCE { modulus INTEGER, publicExponent INTEGER }
	n := encodeInteger(modulus)
	e := encodeInteger(exponent)
	rsaKey := encodeTLV(0x30, append(n, e...))

	// BIT STRING wrapping the key SEQUENCE, with a leading "0 unused bits"
	// byte.
	bitString := encodeTLV(0x03, append([]byte{0x00}, rsaKey...))

	// SubjectPublicKeyInfo ::= SEQUENCE { algorithm, subjectPublicKey }
	spki := encodeTLV(0x30, append(append([]byte{}, rsaAlgorithmIdentifier...), bitString...))

	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: spki}))
}

// FromJWK decodes the base64url modulus and exponent of an RSA JWK and
// builds its PEM block. The declared key type must be RSA.
func FromJWK(keyType, modulus, exponent string) (string, error) {
	if keyType != "RSA" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKeyType, keyType)
	}
	n, err := base64.RawURLEncoding.DecodeString(modulus)
	if err != nil {
		return "", fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(exponent)
	if err != nil {
		return "", fmt.Errorf("decode exponent: %w", err)
	}
	return BuildPublicKeyPEM(n, e), nil
}

// encodeInteger emits an ASN.1 INTEGER. A zero byte is prepended when the
// leading byte has its high bit set, keeping the value non-negative.
func encodeInteger(b []byte) []byte {
	if len(b) > 0 && b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return encodeTLV(0x02, b)
}

// encodeTLV emits tag, DER length, value.
func encodeTLV(tag byte, value []byte) []byte {
	out := append([]byte{tag}, encodeLength(len(value))...)
	return append(out, value...)
}

// encodeLength emits a DER length field: single byte below 128, otherwise
// long form (0x80 | byte count, then the big-endian count bytes).
func encodeLength(n int) []byte {
	if n < 128 {
		return []byte{byte(n)}
	}
	var buf []byte
	for v := n; v > 0; v >>= 8 {
		buf = append([]byte{byte(v & 0xff)}, buf...)
	}
	return append([]byte{0x80 | byte(len(buf))}, buf...)
}

// Package security builds the Content-Security-Policy and the fixed set of
// security headers stamped onto every response. Like internal/locale it is
// shared by the origin server and the edge proxy, so both hosts emit the same
// policy from the same code.
package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// nonceBytes is the entropy of a CSP nonce before base64 rendering.
const nonceBytes = 16

// NonceHeaderName is the internal request header used to forward a nonce from
// the edge proxy to the origin renderer. Never exposed to clients.
const NonceHeaderName = "x-nonce"

// GenerateNonce returns a fresh base64 token with 16 bytes of entropy from
// the platform CSPRNG. It is called once per request and never reused; the
// only failure mode is the random source itself failing.
func GenerateNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: reading random source: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// ValidNonce reports whether a forwarded nonce is acceptable: it must decode
// as base64 to at least 16 bytes. Anything else is discarded and the receiving
// host generates its own.
func ValidNonce(nonce string) bool {
	raw, err := base64.StdEncoding.DecodeString(nonce)
	return err == nil && len(raw) >= nonceBytes
}

type nonceKey struct{}

// NewContext returns a copy of ctx carrying the request's nonce.
func NewContext(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey{}, nonce)
}

// NonceFromContext returns the nonce attached to ctx, or "" when absent.
func NonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey{}).(string)
	return nonce
}

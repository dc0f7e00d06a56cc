package security

import (
	"net/http"
	"strings"
)

// Sources holds the external origins admitted by the policy. The values are
// deployment configuration; the defaults match the production site.
type Sources struct {
	// Analytics serves the tracking script (script-src, connect-src).
	Analytics string
	// Fonts serves both the font stylesheets (style-src) and the font files
	// (font-src, connect-src).
	Fonts string
	// NewsletterAPI is the signup endpoint the browser may call directly
	// (connect-src).
	NewsletterAPI string
	// DemoEmbed hosts the interactive product demo iframe (frame-src) and its
	// poster images (img-src).
	DemoEmbed string
}

// DefaultSources returns the production origins.
func DefaultSources() Sources {
	return Sources{
		Analytics:     "https://plausible.io",
		Fonts:         "https://fonts.bunny.net",
		NewsletterAPI: "https://api.buttondown.com",
		DemoEmbed:     "https://demo.arcade.software",
	}
}

// Policy is the per-request input to the header builder. It is consumed once
// and discarded with the response.
type Policy struct {
	// Nonce authorizes the inline scripts and styles of this response only.
	Nonce string
	// Dev selects the development policy: unsafe-inline instead of nonces
	// (the dev toolchain injects styles it cannot tag) and local WebSocket
	// endpoints for live reload.
	Dev bool
	// Sources are the admitted external origins.
	Sources Sources
	// FrameOptions is the X-Frame-Options value; defaults to SAMEORIGIN.
	FrameOptions string
}

// DefaultFrameOptions matches the frame-ancestors 'self' CSP directive. DENY
// would contradict it, so SAMEORIGIN is the deliberate choice for both hosts.
const DefaultFrameOptions = "SAMEORIGIN"

// BuildCSP renders the complete Content-Security-Policy string for one
// response. Construction never fails; empty source origins simply drop out of
// their directives.
func BuildCSP(p Policy) string {
	scriptSrc := []string{"'self'", p.Sources.Analytics}
	styleSrc := []string{"'self'", p.Sources.Fonts}
	if p.Dev {
		scriptSrc = append(scriptSrc, "'unsafe-inline'")
		styleSrc = append(styleSrc, "'unsafe-inline'")
	} else {
		scriptSrc = append(scriptSrc, "'nonce-"+p.Nonce+"'")
		styleSrc = append(styleSrc, "'nonce-"+p.Nonce+"'")
	}
	styleSrc = append(styleSrc, "'unsafe-hashes'")

	connectSrc := []string{"'self'", p.Sources.Analytics, p.Sources.NewsletterAPI, p.Sources.Fonts}
	if p.Dev {
		connectSrc = append(connectSrc, "ws://localhost:*", "ws://127.0.0.1:*")
	}

	directives := []string{
		"default-src 'self'",
		directive("script-src", scriptSrc),
		directive("style-src", styleSrc),
		directive("connect-src", connectSrc),
		directive("img-src", []string{"'self'", "data:", "blob:", p.Sources.DemoEmbed}),
		directive("font-src", []string{"'self'", p.Sources.Fonts, "data:"}),
		directive("frame-src", []string{p.Sources.DemoEmbed}),
		"frame-ancestors 'self'",
		"base-uri 'self'",
		"form-action 'self'",
		"object-src 'none'",
	}
	if !p.Dev {
		directives = append(directives, "upgrade-insecure-requests")
	}
	return strings.Join(directives, "; ")
}

func directive(name string, values []string) string {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, name)
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	// A directive with no sources would be malformed; 'none' is the safe
	// substitute (only reachable when every configured origin is blank).
	if len(parts) == 1 {
		parts = append(parts, "'none'")
	}
	return strings.Join(parts, " ")
}

// SetStaticHeaders sets the four environment-independent security headers.
// The values are fixed except for X-Frame-Options, which is deployment
// configuration.
func SetStaticHeaders(h http.Header, frameOptions string) {
	if frameOptions == "" {
		frameOptions = DefaultFrameOptions
	}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", frameOptions)
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
}

// Apply stamps the full header set, CSP included, onto h. It overwrites any
// values the rendering layer may have set and never fails.
func Apply(h http.Header, p Policy) {
	h.Set("Content-Security-Policy", BuildCSP(p))
	SetStaticHeaders(h, p.FrameOptions)
}

// Package locale implements locale detection for the site. A single Registry
// holds the supported locales, the default, and the hostname→locale table,
// and resolves every request to exactly one supported locale. Both the origin
// server and the edge proxy compile this package in, so the detection rules
// cannot drift between the two hosts.
package locale

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported language code ("en", "cs").
type Locale string

const (
	// English is the primary locale and the process-wide default.
	English Locale = "en"
	// Czech is the alternate locale.
	Czech Locale = "cs"
)

// CookieName is the cookie consulted first during resolution.
const CookieName = "locale"

// Config holds the static display metadata for one locale.
type Config struct {
	// Name is the human-readable language name shown in the locale switcher.
	Name string
}

// Registry is the immutable locale configuration shared by every host.
// Construct it once at start-up and treat it as read-only afterwards; it is
// safe for unsynchronized concurrent reads.
type Registry struct {
	defaultLocale Locale
	supported     map[Locale]Config
	domains       map[string]Locale
}

// NewRegistry builds a Registry. Every locale code must parse as a BCP 47
// language tag, the default must be one of the supported locales, and every
// domain must map to a supported locale.
func NewRegistry(def Locale, supported map[Locale]Config, domains map[string]Locale) (*Registry, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("locale: no supported locales configured")
	}
	for code := range supported {
		if _, err := language.Parse(string(code)); err != nil {
			return nil, fmt.Errorf("locale: invalid locale code %q: %w", code, err)
		}
	}
	if _, ok := supported[def]; !ok {
		return nil, fmt.Errorf("locale: default locale %q is not in the supported set", def)
	}
	for host, code := range domains {
		if _, ok := supported[code]; !ok {
			return nil, fmt.Errorf("locale: domain %q maps to unsupported locale %q", host, code)
		}
	}

	reg := &Registry{
		defaultLocale: def,
		supported:     make(map[Locale]Config, len(supported)),
		domains:       make(map[string]Locale, len(domains)),
	}
	for code, cfg := range supported {
		reg.supported[code] = cfg
	}
	for host, code := range domains {
		reg.domains[host] = code
	}
	return reg, nil
}

// Default returns the process-wide default locale.
func (r *Registry) Default() Locale {
	return r.defaultLocale
}

// Supported reports whether code is one of the enumerated locales.
func (r *Registry) Supported(code Locale) bool {
	_, ok := r.supported[code]
	return ok
}

// DisplayName returns the configured display name for a locale, or the code
// itself when no name is configured.
func (r *Registry) DisplayName(code Locale) string {
	if cfg, ok := r.supported[code]; ok && cfg.Name != "" {
		return cfg.Name
	}
	return string(code)
}

// Locales returns the supported locale codes in a stable order.
func (r *Registry) Locales() []Locale {
	out := make([]Locale, 0, len(r.supported))
	for code := range r.supported {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Domains returns a copy of the hostname→locale table.
func (r *Registry) Domains() map[string]Locale {
	out := make(map[string]Locale, len(r.domains))
	for host, code := range r.domains {
		out[host] = code
	}
	return out
}

// Resolve determines the locale for a request from its raw Cookie header and
// hostname. The precedence is fixed: a valid locale cookie wins, then the
// hostname table, then the default. Resolve is total; any input, including
// malformed cookie headers and unknown hostnames, yields a supported locale.
func (r *Registry) Resolve(cookieHeader, hostname string) Locale {
	if code, ok := localeCookie(cookieHeader); ok && r.Supported(code) {
		return code
	}
	if code, ok := r.domains[hostname]; ok {
		return code
	}
	return r.defaultLocale
}

// localeCookie scans a raw Cookie header for the locale cookie. A missing or
// unparseable cookie reports ok=false so that resolution falls through to
// hostname detection.
func localeCookie(header string) (Locale, bool) {
	for _, pair := range strings.Split(header, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || name != CookieName {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", false
		}
		return Locale(value), true
	}
	return "", false
}

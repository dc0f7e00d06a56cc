package edge

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stranka-dev/stranka/internal/config"
	"github.com/stranka-dev/stranka/internal/locale"
	"github.com/stranka-dev/stranka/internal/logging"
	"github.com/stranka-dev/stranka/internal/security"
)

func testConfig(originURL string) *config.Config {
	return &config.Config{
		Edge: config.EdgeConfig{
			Listen:    "127.0.0.1:8443",
			OriginURL: originURL,
		},
		Site: config.SiteConfig{
			Name:          "Testsite",
			DefaultLocale: "en",
			Locales: map[string]config.SiteLocaleConfig{
				"en": {Name: "English"},
				"cs": {Name: "Čeština"},
			},
			Domains: map[string]string{
				"example.com": "en",
				"example.cz":  "cs",
			},
		},
		Security: config.SecurityConfig{
			FrameOptions:     "SAMEORIGIN",
			AnalyticsOrigin:  "https://plausible.io",
			FontsOrigin:      "https://fonts.bunny.net",
			NewsletterOrigin: "https://api.buttondown.com",
			DemoEmbedOrigin:  "https://demo.arcade.software",
		},
	}
}

func testProxy(t *testing.T, originURL string) *Proxy {
	t.Helper()
	p, err := New(testConfig(originURL), logging.New(&logging.Config{Output: io.Discard}))
	require.NoError(t, err)
	return p
}

var noncePattern = regexp.MustCompile(`'nonce-([^']+)'`)

func TestNewRejectsRelativeOrigin(t *testing.T) {
	_, err := New(testConfig("localhost:8080"), logging.New(&logging.Config{Output: io.Discard}))
	assert.Error(t, err)
}

func TestProxyForwardsDecisions(t *testing.T) {
	var gotLocale, gotNonce, gotHost string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = r.Header.Get(locale.HeaderName)
		gotNonce = r.Header.Get(security.NonceHeaderName)
		gotHost = r.Host
		w.Write([]byte("page"))
	}))
	defer origin.Close()

	edge := httptest.NewServer(testProxy(t, origin.URL).Handler())
	defer edge.Close()

	req, err := http.NewRequest(http.MethodGet, edge.URL+"/blog", nil)
	require.NoError(t, err)
	req.Host = "example.cz"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cs", gotLocale)
	assert.True(t, security.ValidNonce(gotNonce))
	assert.Equal(t, "example.cz", gotHost)

	// The response policy carries the same nonce the origin received.
	csp := resp.Header.Get("Content-Security-Policy")
	m := noncePattern.FindStringSubmatch(csp)
	require.NotNil(t, m, "no nonce in CSP: %s", csp)
	assert.Equal(t, gotNonce, m[1])

	// The edge never emits a development policy.
	assert.NotContains(t, csp, "'unsafe-inline'")
	assert.Contains(t, csp, "upgrade-insecure-requests")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
}

func TestProxyCookiePrecedence(t *testing.T) {
	var gotLocale string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = r.Header.Get(locale.HeaderName)
	}))
	defer origin.Close()

	edge := httptest.NewServer(testProxy(t, origin.URL).Handler())
	defer edge.Close()

	req, err := http.NewRequest(http.MethodGet, edge.URL+"/", nil)
	require.NoError(t, err)
	req.Host = "example.cz"
	req.AddCookie(&http.Cookie{Name: locale.CookieName, Value: "en"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "en", gotLocale)
}

func TestProxyOverridesOriginHeaders(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A stale or divergent policy from the origin must not survive the
		// edge.
		w.Header().Set("Content-Security-Policy", "default-src *")
		w.Header().Set("X-Frame-Options", "ALLOWALL")
	}))
	defer origin.Close()

	edge := httptest.NewServer(testProxy(t, origin.URL).Handler())
	defer edge.Close()

	req, err := http.NewRequest(http.MethodGet, edge.URL+"/", nil)
	require.NoError(t, err)
	req.Host = "example.com"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEqual(t, "default-src *", resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
}

func TestProxyOriginUnreachable(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	origin.Close()

	edge := httptest.NewServer(testProxy(t, origin.URL).Handler())
	defer edge.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(edge.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

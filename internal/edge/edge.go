// Package edge implements the second request-handling host: a reverse proxy
// deployed in front of the origin. It runs the same decoration pipeline the
// origin does (resolve locale, mint a nonce, stamp security headers) but in
// a separate process, forwarding its decisions to the origin through the
// internal x-locale and x-nonce headers so the renderer can reuse them.
//
// The edge is production-only by construction; there is no development mode
// and the policy it emits never contains unsafe-inline.
package edge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stranka-dev/stranka/internal/config"
	"github.com/stranka-dev/stranka/internal/locale"
	"github.com/stranka-dev/stranka/internal/logging"
	"github.com/stranka-dev/stranka/internal/security"
)

// Proxy is the edge host.
type Proxy struct {
	cfg      *config.Config
	registry *locale.Registry
	logger   logging.Logger
	origin   *url.URL
}

// New builds the edge proxy from the shared configuration.
func New(cfg *config.Config, logger logging.Logger) (*Proxy, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	origin, err := url.Parse(cfg.Edge.OriginURL)
	if err != nil {
		return nil, fmt.Errorf("edge: invalid origin url: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("edge: origin url %q must be absolute", cfg.Edge.OriginURL)
	}
	return &Proxy{
		cfg:      cfg,
		registry: registry,
		logger:   logger.WithComponent("edge"),
		origin:   origin,
	}, nil
}

// Handler builds the edge pipeline around a reverse proxy to the origin.
func (p *Proxy) Handler() http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(p.origin)
			pr.SetXForwarded()
			// Preserve the public hostname; the origin resolves the locale
			// from it when no cookie is present.
			pr.Out.Host = pr.In.Host

			loc := p.registry.Resolve(pr.In.Header.Get("Cookie"), hostname(pr.In))
			pr.Out.Header.Set(locale.HeaderName, string(loc))

			nonce, err := security.GenerateNonce()
			if err != nil {
				// The origin generates its own nonce when the header is
				// absent, so the request still gets a complete policy.
				p.logger.Error(pr.In.Context(), err, "nonce generation failed")
				return
			}
			pr.Out.Header.Set(security.NonceHeaderName, nonce)
		},
		ModifyResponse: func(resp *http.Response) error {
			nonce := resp.Request.Header.Get(security.NonceHeaderName)
			if nonce == "" {
				// Headers without a nonce directive would be worse than the
				// origin's own; keep whatever the origin set.
				return nil
			}
			security.Apply(resp.Header, security.Policy{
				Nonce:        nonce,
				Dev:          false,
				Sources:      p.cfg.Sources(),
				FrameOptions: p.cfg.Security.FrameOptions,
			})
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.Error(r.Context(), err, "origin unreachable", "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Handle("/*", proxy)
	return r
}

// Start runs the edge listener until ctx is cancelled.
func (p *Proxy) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              p.cfg.Edge.Listen,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		p.logger.Info(ctx, "edge listening", "addr", p.cfg.Edge.Listen, "origin", p.origin.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("edge: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("edge: shutdown: %w", err)
	}
	p.logger.Info(context.Background(), "edge stopped")
	return nil
}

func hostname(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.Host); err == nil {
		return host
	}
	return r.Host
}

package server

import (
	"net"
	"net/http"

	"github.com/stranka-dev/stranka/internal/locale"
	"github.com/stranka-dev/stranka/internal/security"
)

// requestPipeline is the per-request decoration pipeline: resolve the locale,
// obtain a nonce, attach both to the request context, stamp the security
// headers, then hand off to the handler. The flow is strictly linear; a
// failing handler response is decorated like any other, never retried.
//
// When the request arrives through the edge proxy it carries x-locale and
// x-nonce headers recording the decision the edge already made. Those are
// honored when valid so both hosts agree on one nonce per request; anything
// invalid is recomputed here.
func (s *Server) requestPipeline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc := s.resolveLocale(r)

		nonce := r.Header.Get(security.NonceHeaderName)
		if !security.ValidNonce(nonce) {
			fresh, err := security.GenerateNonce()
			if err != nil {
				// Serving a page without a usable nonce would silently drop
				// CSP protection for its inline resources.
				s.logger.Error(r.Context(), err, "nonce generation failed")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			nonce = fresh
		}

		security.Apply(w.Header(), security.Policy{
			Nonce:        nonce,
			Dev:          s.cfg.IsDev(),
			Sources:      s.cfg.Sources(),
			FrameOptions: s.cfg.Security.FrameOptions,
		})

		ctx := locale.NewContext(r.Context(), loc)
		ctx = security.NewContext(ctx, nonce)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveLocale(r *http.Request) locale.Locale {
	if forwarded := locale.Locale(r.Header.Get(locale.HeaderName)); forwarded != "" {
		if s.registry.Supported(forwarded) {
			return forwarded
		}
	}
	return s.registry.Resolve(r.Header.Get("Cookie"), hostname(r))
}

// hostname strips the port from the Host header, matching what the locale
// domain table is keyed by.
func hostname(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.Host); err == nil {
		return host
	}
	return r.Host
}

// requestLocale reads the pipeline's decision back out of the context. The
// default locale covers handlers exercised without the pipeline (tests).
func (s *Server) requestLocale(r *http.Request) locale.Locale {
	if loc, ok := locale.FromContext(r.Context()); ok {
		return loc
	}
	return s.registry.Default()
}

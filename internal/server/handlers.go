package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stranka-dev/stranka/internal/feeds"
	"github.com/stranka-dev/stranka/internal/locale"
	"github.com/stranka-dev/stranka/internal/render"
	"github.com/stranka-dev/stranka/internal/security"
)

func (s *Server) pageData(r *http.Request) render.PageData {
	return render.PageData{
		Locale: s.requestLocale(r),
		Nonce:  security.NonceFromContext(r.Context()),
		Path:   r.URL.Path,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data render.PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, name, data); err != nil {
		s.logger.Error(r.Context(), err, "render failed", "template", name, "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "home", s.pageData(r))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	loc := s.requestLocale(r)
	slug := chi.URLParam(r, "page")
	entry, ok := s.store.Page(loc, s.registry.Default(), slug)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	data := s.pageData(r)
	data.Title = entry.Title
	data.Description = entry.Description
	data.Entry = entry
	s.renderPage(w, r, "page", data)
}

func (s *Server) handleBlogIndex(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r)
	data.Posts = s.store.Posts(s.requestLocale(r))
	s.renderPage(w, r, "blog", data)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	loc := s.requestLocale(r)
	slug := chi.URLParam(r, "slug")
	entry, ok := s.store.Post(loc, s.registry.Default(), slug)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	data := s.pageData(r)
	data.Title = entry.Title
	data.Description = entry.Description
	data.Entry = entry
	s.renderPage(w, r, "post", data)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	data := s.pageData(r)
	if err := s.renderer.Render(w, "notfound", data); err != nil {
		s.logger.Error(r.Context(), err, "render failed", "template", "notfound")
	}
}

// handleSetLocale persists an explicit language choice and sends the visitor
// back where they came from. Unknown codes redirect without setting anything.
func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	code := locale.Locale(chi.URLParam(r, "code"))
	if s.registry.Supported(code) {
		locale.SetCookie(w, code, !s.cfg.IsDev())
	}
	http.Redirect(w, r, safeReturnPath(r), http.StatusSeeOther)
}

// safeReturnPath reduces the Referer to a local path so the redirect can
// never bounce the visitor to another site.
func safeReturnPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	target := ref.Path
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	return target
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	body, err := feeds.RSS(s.store, s.cfg.Server.BaseURL, s.cfg.Site.Name, s.requestLocale(r))
	if err != nil {
		s.logger.Error(r.Context(), err, "rss generation failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := feeds.Sitemap(s.store, s.registry, s.cfg.Server.BaseURL)
	if err != nil {
		s.logger.Error(r.Context(), err, "sitemap generation failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	// The signup form arrives urlencoded without JavaScript and as
	// multipart/form-data from the fetch snippet, which posts FormData.
	if err := r.ParseMultipartForm(4 << 10); err != nil && err != http.ErrNotMultipart {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	status, err := s.newsletter.Subscribe(r.Context(), email)
	if err != nil {
		s.logger.Warn(r.Context(), err, "newsletter signup failed", "status", status)
	}
	w.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Package server implements the origin host: the chi router, the locale and
// security middleware pipeline, and the page handlers. The edge proxy in
// internal/edge is the second, independent host; both share internal/locale
// and internal/security so the policy they enforce cannot diverge.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stranka-dev/stranka/internal/config"
	"github.com/stranka-dev/stranka/internal/content"
	"github.com/stranka-dev/stranka/internal/locale"
	"github.com/stranka-dev/stranka/internal/logging"
	"github.com/stranka-dev/stranka/internal/newsletter"
	"github.com/stranka-dev/stranka/internal/render"
	"github.com/stranka-dev/stranka/internal/watcher"
)

// Server is the origin host.
type Server struct {
	cfg        *config.Config
	registry   *locale.Registry
	store      *content.Store
	renderer   *render.Renderer
	newsletter *newsletter.Client
	logger     logging.Logger
	hub        *reloadHub
	watcher    *watcher.Watcher
}

// New wires the origin host from configuration. The content store and
// templates are loaded eagerly so a broken deployment fails at start-up, not
// on the first request.
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	store, err := content.NewStore(cfg.Content.Dir, cfg.IsDev())
	if err != nil {
		return nil, fmt.Errorf("server: loading content: %w", err)
	}

	renderer, err := render.New(cfg.Site.Name, registry, cfg.Content.TranslationsDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		registry:   registry,
		store:      store,
		renderer:   renderer,
		newsletter: newsletter.New(cfg.Newsletter.Endpoint, cfg.Newsletter.APIKey, cfg.Newsletter.Timeout),
		logger:     logger.WithComponent("server"),
	}

	if cfg.IsDev() && cfg.Development.HotReload {
		s.hub = newReloadHub(s.logger)
		s.watcher, err = watcher.New(300*time.Millisecond, []string{".md", ".yml"}, logger)
		if err != nil {
			return nil, fmt.Errorf("server: creating watcher: %w", err)
		}
	}
	return s, nil
}

// Router builds the origin routing table with the full middleware pipeline.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestPipeline)

	r.Get("/", s.handleHome)
	r.Get("/blog", s.handleBlogIndex)
	r.Get("/blog/{slug}", s.handlePost)
	r.Get("/locale/{code}", s.handleSetLocale)
	r.Get("/rss.xml", s.handleRSS)
	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/newsletter", s.handleNewsletter)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.Server.StaticDir))))

	if s.hub != nil {
		r.Get("/ws", s.handleReloadSocket)
	}

	// Content pages are routed last so fixed routes always win.
	r.Get("/{page}", s.handlePage)
	r.NotFound(s.handleNotFound)

	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully. In development it also starts the content watcher and reload
// hub.
func (s *Server) Start(ctx context.Context) error {
	if s.watcher != nil {
		for _, dir := range []string{s.cfg.Content.Dir, s.cfg.Content.TranslationsDir} {
			if err := s.watcher.AddRecursive(dir); err != nil {
				s.logger.Warn(ctx, err, "cannot watch directory", "dir", dir)
			}
		}
		s.watcher.OnChange(func(paths []string) {
			if err := s.store.Reload(); err != nil {
				s.logger.Error(ctx, err, "content reload failed")
				return
			}
			s.logger.Info(ctx, "content reloaded", "changed", len(paths))
			s.hub.broadcastReload()
		})
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "origin listening", "addr", addr, "env", s.cfg.Server.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.closeAll()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info(context.Background(), "origin stopped")
	return nil
}

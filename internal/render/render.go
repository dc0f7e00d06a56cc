// Package render is the rendering layer: it turns a content entry plus the
// request-scoped locale and nonce into a full HTML page. Templates are
// embedded in the binary; UI strings come from per-locale YAML translation
// files, also embedded, optionally overridden from a directory on disk.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stranka-dev/stranka/internal/content"
	"github.com/stranka-dev/stranka/internal/locale"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed translations/*.yml
var translationFS embed.FS

// PageData is the input to every template execution. It carries the resolved
// locale and the per-request nonce so inline scripts and styles can be tagged
// as trusted under the CSP.
type PageData struct {
	Site        string
	Locale      locale.Locale
	Nonce       string
	Title       string
	Description string
	Path        string
	Entry       *content.Entry
	Posts       []*content.Entry
	Locales     []LocaleLink
}

// LocaleLink is one entry of the language switcher.
type LocaleLink struct {
	Code   locale.Locale
	Name   string
	Active bool
}

// Renderer executes page templates with localized UI strings.
type Renderer struct {
	siteName     string
	registry     *locale.Registry
	templates    *template.Template
	translations map[locale.Locale]map[string]string
}

// New parses the embedded templates and translations. translationsDir, when
// non-empty, overlays <code>.yml files on top of the embedded defaults so a
// deployment can adjust copy without rebuilding.
func New(siteName string, registry *locale.Registry, translationsDir string) (*Renderer, error) {
	r := &Renderer{
		siteName:     siteName,
		registry:     registry,
		translations: make(map[locale.Locale]map[string]string),
	}

	if err := r.loadTranslations(translationsDir); err != nil {
		return nil, err
	}

	tmpl := template.New("").Funcs(template.FuncMap{
		"t":          r.translate,
		"formatDate": formatDate,
	})
	tmpl, err := tmpl.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parsing templates: %w", err)
	}
	r.templates = tmpl
	return r, nil
}

func (r *Renderer) loadTranslations(dir string) error {
	if err := fs.WalkDir(translationFS, "translations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		return r.mergeTranslationFile(path, func(p string) ([]byte, error) { return translationFS.ReadFile(p) })
	}); err != nil {
		return err
	}

	if dir == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := r.mergeTranslationFile(path, os.ReadFile); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) mergeTranslationFile(path string, read func(string) ([]byte, error)) error {
	raw, err := read(path)
	if err != nil {
		return fmt.Errorf("render: reading translations %s: %w", path, err)
	}
	var messages map[string]string
	if err := yaml.Unmarshal(raw, &messages); err != nil {
		return fmt.Errorf("render: parsing translations %s: %w", path, err)
	}
	code := locale.Locale(trimExt(filepath.Base(path)))
	if r.translations[code] == nil {
		r.translations[code] = make(map[string]string)
	}
	for key, value := range messages {
		r.translations[code][key] = value
	}
	return nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// translate returns the UI string for key in loc. Missing keys fall back to
// the default locale's string, then to the key itself so a template never
// renders an empty label.
func (r *Renderer) translate(loc locale.Locale, key string) string {
	if s, ok := r.translations[loc][key]; ok {
		return s
	}
	if s, ok := r.translations[r.registry.Default()][key]; ok {
		return s
	}
	return key
}

// formatDate renders a date the way each language expects.
func formatDate(loc locale.Locale, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if loc == locale.Czech {
		return t.Format("2. 1. 2006")
	}
	return t.Format("January 2, 2006")
}

// LocaleLinks builds the language switcher entries with the active locale
// marked.
func (r *Renderer) LocaleLinks(active locale.Locale) []LocaleLink {
	codes := r.registry.Locales()
	links := make([]LocaleLink, 0, len(codes))
	for _, code := range codes {
		links = append(links, LocaleLink{
			Code:   code,
			Name:   r.registry.DisplayName(code),
			Active: code == active,
		})
	}
	return links
}

// Render executes the named page template into w. Errors propagate to the
// caller; the pipeline never retries a failed render.
func (r *Renderer) Render(w io.Writer, name string, data PageData) error {
	if data.Site == "" {
		data.Site = r.siteName
	}
	if data.Locales == nil {
		data.Locales = r.LocaleLinks(data.Locale)
	}
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render: %s: %w", name, err)
	}
	return nil
}

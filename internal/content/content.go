// Package content implements the localized content store backing the site.
// Content lives on disk as Markdown files with YAML front matter, laid out as
//
//	content/<locale>/pages/<slug>.md
//	content/<locale>/blog/<slug>.md
//
// The store loads everything at start-up, renders the Markdown to HTML once,
// and serves lookups from an in-memory index keyed by (locale, slug). Reload
// swaps the whole index atomically, so readers never observe a partial load.
package content

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/stranka-dev/stranka/internal/locale"
)

// Kind distinguishes standalone pages from dated blog posts.
type Kind string

const (
	KindPage Kind = "pages"
	KindPost Kind = "blog"
)

// Entry is one localized content document.
type Entry struct {
	Kind        Kind
	Locale      locale.Locale
	Slug        string
	Title       string
	Description string
	Date        time.Time
	Tags        []string
	Draft       bool
	Body        template.HTML
}

type frontMatter struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Date        time.Time `yaml:"date"`
	Slug        string    `yaml:"slug"`
	Tags        []string  `yaml:"tags"`
	Draft       bool      `yaml:"draft"`
}

// Store holds the loaded content index. All methods are safe for concurrent
// use; mutation happens only through Reload.
type Store struct {
	dir           string
	includeDrafts bool
	markdown      goldmark.Markdown

	mu      sync.RWMutex
	entries map[locale.Locale]map[Kind]map[string]*Entry
}

// NewStore creates a store rooted at dir and performs the initial load.
// includeDrafts is enabled in development so draft posts can be previewed.
func NewStore(dir string, includeDrafts bool) (*Store, error) {
	s := &Store{
		dir:           dir,
		includeDrafts: includeDrafts,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(htmlrenderer.WithUnsafe()),
		),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the content tree and swaps the index in one step.
func (s *Store) Reload() error {
	index := make(map[locale.Locale]map[Kind]map[string]*Entry)

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		// Anything outside <locale>/<kind>/<file>.md is not content.
		if len(parts) != 3 {
			return nil
		}
		loc := locale.Locale(parts[0])
		kind := Kind(parts[1])
		if kind != KindPage && kind != KindPost {
			return nil
		}

		entry, err := s.loadFile(path, loc, kind)
		if err != nil {
			return fmt.Errorf("content: %s: %w", rel, err)
		}
		if entry.Draft && !s.includeDrafts {
			return nil
		}

		if index[loc] == nil {
			index[loc] = make(map[Kind]map[string]*Entry)
		}
		if index[loc][kind] == nil {
			index[loc][kind] = make(map[string]*Entry)
		}
		index[loc][kind][entry.Slug] = entry
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = index
	s.mu.Unlock()
	return nil
}

func (s *Store) loadFile(path string, loc locale.Locale, kind Kind) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	slug := fm.Slug
	if slug == "" {
		slug = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}

	return &Entry{
		Kind:        kind,
		Locale:      loc,
		Slug:        slug,
		Title:       fm.Title,
		Description: fm.Description,
		Date:        fm.Date,
		Tags:        fm.Tags,
		Draft:       fm.Draft,
		Body:        template.HTML(buf.String()),
	}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// Markdown body. A file without front matter is all body.
func splitFrontMatter(raw []byte) (meta, body []byte, err error) {
	const delim = "---"
	text := string(raw)
	if !strings.HasPrefix(text, delim) {
		return nil, raw, nil
	}
	rest := text[len(delim):]
	rest = strings.TrimPrefix(rest, "\r")
	rest = strings.TrimPrefix(rest, "\n")
	if strings.HasPrefix(rest, delim) {
		// Empty front matter block.
		after := strings.TrimPrefix(strings.TrimPrefix(rest[len(delim):], "\r"), "\n")
		return nil, []byte(after), nil
	}
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return nil, nil, fmt.Errorf("unterminated front matter")
	}
	meta = []byte(rest[:end])
	after := rest[end+1+len(delim):]
	after = strings.TrimPrefix(after, "\r")
	after = strings.TrimPrefix(after, "\n")
	return meta, []byte(after), nil
}

// Page returns the page with the given slug in loc, falling back to the
// default locale when the translation is missing.
func (s *Store) Page(loc, fallback locale.Locale, slug string) (*Entry, bool) {
	return s.lookup(KindPage, loc, fallback, slug)
}

// Post returns the blog post with the given slug in loc, falling back to the
// default locale when the translation is missing.
func (s *Store) Post(loc, fallback locale.Locale, slug string) (*Entry, bool) {
	return s.lookup(KindPost, loc, fallback, slug)
}

func (s *Store) lookup(kind Kind, loc, fallback locale.Locale, slug string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[loc][kind][slug]; ok {
		return entry, true
	}
	if fallback != loc {
		if entry, ok := s.entries[fallback][kind][slug]; ok {
			return entry, true
		}
	}
	return nil, false
}

// Posts returns all blog posts for loc, newest first.
func (s *Store) Posts(loc locale.Locale) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]*Entry, 0, len(s.entries[loc][KindPost]))
	for _, entry := range s.entries[loc][KindPost] {
		posts = append(posts, entry)
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Slug < posts[j].Slug
		}
		return posts[i].Date.After(posts[j].Date)
	})
	return posts
}

// Pages returns all pages for loc in slug order.
func (s *Store) Pages(loc locale.Locale) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]*Entry, 0, len(s.entries[loc][KindPage]))
	for _, entry := range s.entries[loc][KindPage] {
		pages = append(pages, entry)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages
}

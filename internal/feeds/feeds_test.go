package feeds

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stranka-dev/stranka/internal/content"
	"github.com/stranka-dev/stranka/internal/locale"
)

func writeEntry(t *testing.T, root, loc, kind, name, body string) {
	t.Helper()
	dir := filepath.Join(root, loc, kind)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func testStore(t *testing.T) *content.Store {
	t.Helper()
	root := t.TempDir()

	writeEntry(t, root, "en", "pages", "about.md", `---
title: About us
date: 2026-03-10T00:00:00Z
---
Who we are.
`)
	writeEntry(t, root, "cs", "pages", "about.md", `---
title: O nás
---
Kdo jsme.
`)
	writeEntry(t, root, "en", "blog", "launch.md", `---
title: We launched
description: The launch post
date: 2026-05-01T00:00:00Z
---
It is live.
`)
	writeEntry(t, root, "en", "blog", "roadmap.md", `---
title: Roadmap
date: 2026-06-15T00:00:00Z
---
What comes next.
`)

	store, err := content.NewStore(root, false)
	require.NoError(t, err)
	return store
}

func testRegistry(t *testing.T) *locale.Registry {
	t.Helper()
	reg, err := locale.NewRegistry(
		locale.English,
		map[locale.Locale]locale.Config{
			locale.English: {Name: "English"},
			locale.Czech:   {Name: "Čeština"},
		},
		nil,
	)
	require.NoError(t, err)
	return reg
}

func TestRSS(t *testing.T) {
	store := testStore(t)

	body, err := RSS(store, "https://example.com", "Testsite", locale.English)
	require.NoError(t, err)

	doc := string(body)
	assert.True(t, strings.HasPrefix(doc, xml.Header))
	assert.Contains(t, doc, `<rss version="2.0">`)
	assert.Contains(t, doc, "<language>en</language>")
	assert.Contains(t, doc, "<title>We launched</title>")
	assert.Contains(t, doc, "<link>https://example.com/blog/launch</link>")
	assert.Contains(t, doc, "<description>The launch post</description>")
	assert.Contains(t, doc, "<pubDate>Fri, 01 May 2026 00:00:00 +0000</pubDate>")

	// Newest first.
	assert.Less(t, strings.Index(doc, "Roadmap"), strings.Index(doc, "We launched"))
}

func TestRSSEmptyLocale(t *testing.T) {
	store := testStore(t)

	body, err := RSS(store, "https://example.cz", "Testsite", locale.Czech)
	require.NoError(t, err)

	doc := string(body)
	assert.Contains(t, doc, "<language>cs</language>")
	assert.NotContains(t, doc, "<item>")
}

func TestSitemap(t *testing.T) {
	store := testStore(t)
	reg := testRegistry(t)

	body, err := Sitemap(store, reg, "https://example.com")
	require.NoError(t, err)

	doc := string(body)
	assert.Contains(t, doc, `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
	assert.Contains(t, doc, "<loc>https://example.com/</loc>")
	assert.Contains(t, doc, "<loc>https://example.com/blog</loc>")
	assert.Contains(t, doc, "<loc>https://example.com/about</loc>")
	assert.Contains(t, doc, "<loc>https://example.com/blog/launch</loc>")
	assert.Contains(t, doc, "<lastmod>2026-05-01</lastmod>")
}

func TestSitemapHreflangAlternates(t *testing.T) {
	store := testStore(t)
	reg := testRegistry(t)

	body, err := Sitemap(store, reg, "https://example.com")
	require.NoError(t, err)

	doc := string(body)
	// The about page exists in both locales, so each variant links the other.
	assert.Contains(t, doc, `hreflang="cs"`)
	assert.Contains(t, doc, `hreflang="en"`)
	assert.Contains(t, doc, `rel="alternate"`)
	// Blog posts have no Czech translation, so launch appears only in its own
	// loc element, never as an alternate target.
	assert.Equal(t, 1, strings.Count(doc, "https://example.com/blog/launch"))
}

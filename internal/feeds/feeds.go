// Package feeds builds the RSS feed and the sitemap from the content store.
// Both are plain encoding/xml marshalling of the loaded entries; nothing here
// touches the network or the filesystem.
package feeds

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/stranka-dev/stranka/internal/content"
	"github.com/stranka-dev/stranka/internal/locale"
)

// rssFeed is the RSS 2.0 document envelope.
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

// RSS renders the blog feed for one locale.
func RSS(store *content.Store, baseURL, siteName string, loc locale.Locale) ([]byte, error) {
	posts := store.Posts(loc)
	items := make([]rssItem, 0, len(posts))
	for _, post := range posts {
		link := fmt.Sprintf("%s/blog/%s", baseURL, post.Slug)
		item := rssItem{
			Title:       post.Title,
			Link:        link,
			Description: post.Description,
			GUID:        link,
		}
		if !post.Date.IsZero() {
			item.PubDate = post.Date.Format(time.RFC1123Z)
		}
		items = append(items, item)
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       siteName,
			Link:        baseURL,
			Description: siteName + " blog",
			Language:    string(loc),
			Items:       items,
		},
	}
	return marshal(feed)
}

// urlSet is the sitemap document envelope.
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	XmlnsXH string       `xml:"xmlns:xhtml,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string      `xml:"loc"`
	LastMod    string      `xml:"lastmod,omitempty"`
	Alternates []alternate `xml:"xhtml:link"`
}

type alternate struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// Sitemap renders the sitemap covering every page and post in every supported
// locale, with hreflang alternates linking translations of the same slug.
func Sitemap(store *content.Store, registry *locale.Registry, baseURL string) ([]byte, error) {
	set := urlSet{
		Xmlns:   "http://www.sitemaps.org/schemas/sitemap/0.9",
		XmlnsXH: "http://www.w3.org/1999/xhtml",
	}

	set.URLs = append(set.URLs, sitemapURL{Loc: baseURL + "/"})
	set.URLs = append(set.URLs, sitemapURL{Loc: baseURL + "/blog"})

	for _, loc := range registry.Locales() {
		for _, page := range store.Pages(loc) {
			set.URLs = append(set.URLs, entryURL(store, registry, baseURL, page))
		}
		for _, post := range store.Posts(loc) {
			set.URLs = append(set.URLs, entryURL(store, registry, baseURL, post))
		}
	}
	return marshal(set)
}

func entryURL(store *content.Store, registry *locale.Registry, baseURL string, entry *content.Entry) sitemapURL {
	u := sitemapURL{Loc: entryLoc(baseURL, entry)}
	if !entry.Date.IsZero() {
		u.LastMod = entry.Date.Format("2006-01-02")
	}
	for _, code := range registry.Locales() {
		if code == entry.Locale {
			continue
		}
		other, ok := translationOf(store, entry, code)
		if !ok {
			continue
		}
		u.Alternates = append(u.Alternates, alternate{
			Rel:      "alternate",
			Hreflang: string(code),
			Href:     entryLoc(baseURL, other),
		})
	}
	return u
}

func translationOf(store *content.Store, entry *content.Entry, code locale.Locale) (*content.Entry, bool) {
	if entry.Kind == content.KindPost {
		return store.Post(code, code, entry.Slug)
	}
	return store.Page(code, code, entry.Slug)
}

func entryLoc(baseURL string, entry *content.Entry) string {
	if entry.Kind == content.KindPost {
		return fmt.Sprintf("%s/blog/%s", baseURL, entry.Slug)
	}
	return fmt.Sprintf("%s/%s", baseURL, entry.Slug)
}

func marshal(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feeds: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

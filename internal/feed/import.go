package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/mmcdole/gofeed"
)

// Importer turns an external RSS or Atom feed into news drafts.
type Importer struct {
	parser *gofeed.Parser
}

func NewImporter() *Importer {
	return &Importer{parser: gofeed.NewParser()}
}

// ImportFeed fetches url and converts each entry into a News draft. Drafts
// carry no ID; the caller decides which ones to create.
func (s *Source) ImportFeed(ctx context.Context, url, category string) ([]content.News, error) {
	return NewImporter().Import(ctx, url, category)
}

func (im *Importer) Import(ctx context.Context, url, category string) ([]content.News, error) {
	f, err := im.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}
	return drafts(f, category), nil
}

// ImportString parses an already downloaded feed document.
func (im *Importer) ImportString(doc, category string) ([]content.News, error) {
	f, err := im.parser.ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return drafts(f, category), nil
}

func drafts(f *gofeed.Feed, category string) []content.News {
	if category == "" {
		category = "News"
	}
	seen := make(map[string]bool)
	out := make([]content.News, 0, len(f.Items))
	for _, item := range f.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		var date string
		if item.PublishedParsed != nil {
			date = item.PublishedParsed.UTC().Format(time.DateOnly)
		} else if item.UpdatedParsed != nil {
			date = item.UpdatedParsed.UTC().Format(time.DateOnly)
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		slug := content.Slugify(title)
		if slug == "" || seen[slug] {
			slug = strings.Trim(slug+"-"+linkID(item.Link+title)[:8], "-")
		}
		seen[slug] = true

		n := content.News{
			Title:    title,
			Slug:     slug,
			Category: category,
			Date:     date,
			Summary:  truncate(stripHTML(summary), 300),
			Content:  body,
			Link:     item.Link,
		}
		if item.Image != nil {
			n.Image = item.Image.URL
		}
		out = append(out, n)
	}
	return out
}

func linkID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

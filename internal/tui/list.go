package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/richtext"
)

// row is one entry of the list pane, whatever its kind.
type row struct {
	Kind     content.Kind
	Title    string
	Slug     string
	Date     string
	Category string
	Tags     []string
	Meta     string
	Body     string
	Link     string
}

// publicURL is the item's page on the site.
func (r row) publicURL(siteURL string) string {
	return strings.TrimRight(siteURL, "/") + "/" + r.Kind.Path() + "/" + url.PathEscape(r.Slug)
}

func newsRow(n content.News) row {
	return row{
		Kind:     content.KindNews,
		Title:    n.Title,
		Slug:     n.Slug,
		Date:     n.Date,
		Category: n.Category,
		Meta:     n.Summary,
		Body:     richtext.PlainText(n.Content, 0),
		Link:     n.Link,
	}
}

func projectRow(p content.Project) row {
	return row{
		Kind:     content.KindProjects,
		Title:    p.Title,
		Slug:     p.Slug,
		Date:     p.Date,
		Category: p.Category,
		Tags:     p.Tags,
		Meta:     p.Description,
		Body:     richtext.PlainText(p.Content, 0),
		Link:     p.GitHub,
	}
}

func publicationRow(p content.Publication) row {
	return row{
		Kind:     content.KindPublications,
		Title:    p.Title,
		Slug:     p.Slug,
		Date:     p.Date,
		Category: strings.Join(p.Tags, ", "),
		Meta:     strings.Join(nonEmpty(p.AuthorLine(), p.Venue), " · "),
		Body:     richtext.PlainText(p.Abstract, 0),
		Link:     p.Link,
	}
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// relativeTime renders recent dates relative to now and older ones as a
// calendar date.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < 0:
		return t.Format("Jan 2, 2006")
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func displayDate(s string) string {
	t, ok := query.ParseDate(s)
	if !ok {
		return "undated"
	}
	return relativeTime(t)
}

func renderListItem(r row, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(r.Title, width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(r.Title, width-4))
	}

	meta := "  " + itemSourceStyle.Render(truncateStr(r.Category, width/2)) + " " + itemTimeStyle.Render("· "+displayDate(r.Date))

	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderList(rows []row, cursor int, height int, width int) string {
	if len(rows) == 0 {
		return lipglossCenter("No results", width, height)
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(rows) {
		end = len(rows)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(rows[i], i == cursor, width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}

package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/richtext"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date":    displayDate,
	"join":    strings.Join,
	"rich":    func(s string) template.HTML { return template.HTML(richtext.Sanitize(s)) },
	"excerpt": richtext.PlainText,
	"year":    func() int { return time.Now().Year() },
}

func displayDate(s string) string {
	t, ok := query.ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("Jan 2, 2006")
}

// renderer holds one template set per page, each combining the shared
// layout and partials with that page's "content" block.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	shared, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/_*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &renderer{pages: make(map[string]*template.Template)}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if strings.HasPrefix(name, "_") {
			continue
		}
		t, err := template.Must(shared.Clone()).ParseFS(templateFS, f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["error"]
		data = errorPage(data, fmt.Sprintf("missing template %q", name))
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

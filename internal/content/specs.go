package content

import (
	"strings"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
)

func single(category string) []string {
	return []string{category}
}

// NewsSpec searches title, summary and content; category is single-valued.
var NewsSpec = query.Spec[News]{
	Fields:     func(n News) []string { return []string{n.Title, n.Summary, n.Content} },
	Categories: func(n News) []string { return single(n.Category) },
	Title:      func(n News) string { return n.Title },
	Date:       func(n News) string { return n.Date },
}

// ProjectSpec searches title, description and tags; filtering uses the
// category only, never the tags.
var ProjectSpec = query.Spec[Project]{
	Fields: func(p Project) []string {
		return append([]string{p.Title, p.Description}, p.Tags...)
	},
	Categories: func(p Project) []string { return single(p.Category) },
	Title:      func(p Project) string { return p.Title },
	Date:       func(p Project) string { return p.Date },
}

// PublicationSpec searches title, abstract, venue, authors and tags; the tag
// set is the filterable dimension.
var PublicationSpec = query.Spec[Publication]{
	Fields: func(p Publication) []string {
		fields := []string{p.Title, p.Abstract, p.Venue, strings.Join(p.Authors, ", ")}
		return append(fields, p.Tags...)
	},
	Categories: func(p Publication) []string { return p.Tags },
	Title:      func(p Publication) string { return p.Title },
	Date:       func(p Publication) string { return p.Date },
}

var GallerySpec = query.Spec[GalleryItem]{
	Fields:     func(g GalleryItem) []string { return []string{g.Title, g.Description} },
	Categories: func(g GalleryItem) []string { return single(g.Category) },
	Title:      func(g GalleryItem) string { return g.Title },
	Date:       func(g GalleryItem) string { return g.Date },
}

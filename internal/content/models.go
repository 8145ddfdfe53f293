package content

import (
	"fmt"
	"strings"
)

// Kind names one of the collections served by the content API.
type Kind string

const (
	KindNews         Kind = "news"
	KindProjects     Kind = "projects"
	KindPublications Kind = "publications"
	KindGallery      Kind = "gallery"
)

// Kinds returns every collection in navigation order.
func Kinds() []Kind {
	return []Kind{KindNews, KindProjects, KindPublications, KindGallery}
}

// ParseKind accepts a collection name as used in URLs and CLI args.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown content kind %q (valid: news, projects, publications, gallery)", s)
}

// Path is the API and site path segment for the collection.
func (k Kind) Path() string {
	return string(k)
}

func (k Kind) Label() string {
	switch k {
	case KindNews:
		return "News"
	case KindProjects:
		return "Projects"
	case KindPublications:
		return "Publications"
	case KindGallery:
		return "Gallery"
	}
	return string(k)
}

// Singular is the label used on forms ("New project").
func (k Kind) Singular() string {
	switch k {
	case KindNews:
		return "news item"
	case KindProjects:
		return "project"
	case KindPublications:
		return "publication"
	case KindGallery:
		return "gallery item"
	}
	return string(k)
}

type News struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	Image    string `json:"image,omitempty"`
	Link     string `json:"link,omitempty"`
}

type Project struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
	GitHub      string   `json:"github,omitempty"`
}

type Publication struct {
	ID       string   `json:"_id"`
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Date     string   `json:"date"`
	Abstract string   `json:"abstract"`
	Venue    string   `json:"venue"`
	Authors  []string `json:"authors"`
	Tags     []string `json:"tags"`
	DOI      string   `json:"doi,omitempty"`
	Image    string   `json:"image,omitempty"`
	Link     string   `json:"link,omitempty"`
	PDF      string   `json:"pdf,omitempty"`
}

type GalleryItem struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image"`
}

// AuthorLine joins the author list for display.
func (p Publication) AuthorLine() string {
	return strings.Join(p.Authors, ", ")
}

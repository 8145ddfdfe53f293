package web

import (
	"reflect"
	"strings"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/richtext"
	"github.com/go-playground/validator/v10"
)

// validate checks bound forms. Field errors are reported under the form
// field name.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && content.Slugify(s) == s
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := query.ParseDate(fl.Field().String())
		return ok
	})
	return v
}()

type formField struct {
	Name  string
	Label string
	Type  string // text, date, url, textarea, richtext
	Value string
	Help  string
	Error string
}

// itemInput is the bound admin form of one content kind.
type itemInput interface {
	fields() []formField
	apiForm() *api.Form
	// richText points at the field edited with the formatting toolbar, or
	// is nil when the kind has none.
	richText() *string
	clean()
}

func newInput(kind content.Kind) itemInput {
	switch kind {
	case content.KindNews:
		return &newsInput{}
	case content.KindProjects:
		return &projectInput{}
	case content.KindPublications:
		return &publicationInput{}
	default:
		return &galleryInput{}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func slugOr(slug, title string) string {
	if slug = strings.TrimSpace(slug); slug != "" {
		return slug
	}
	return content.Slugify(title)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

type newsInput struct {
	Title    string `form:"title" validate:"required,max=200"`
	Slug     string `form:"slug" validate:"omitempty,slug"`
	Category string `form:"category" validate:"required,max=60"`
	Date     string `form:"date" validate:"required,isodate"`
	Summary  string `form:"summary" validate:"max=500"`
	Content  string `form:"content"`
	Link     string `form:"link" validate:"omitempty,http_url"`
}

func newsFrom(n content.News) *newsInput {
	return &newsInput{
		Title: n.Title, Slug: n.Slug, Category: n.Category, Date: n.Date,
		Summary: n.Summary, Content: n.Content, Link: n.Link,
	}
}

func (in *newsInput) fields() []formField {
	return []formField{
		{Name: "title", Label: "Title", Type: "text", Value: in.Title},
		{Name: "slug", Label: "Slug", Type: "text", Value: in.Slug, Help: "Leave empty to derive it from the title."},
		{Name: "category", Label: "Category", Type: "text", Value: in.Category, Help: "e.g. Award, Conference, Talk"},
		{Name: "date", Label: "Date", Type: "date", Value: in.Date},
		{Name: "summary", Label: "Summary", Type: "textarea", Value: in.Summary},
		{Name: "content", Label: "Content", Type: "richtext", Value: in.Content},
		{Name: "link", Label: "External link", Type: "url", Value: in.Link},
	}
}

func (in *newsInput) apiForm() *api.Form {
	return api.NewForm().
		Set("title", in.Title).
		Set("slug", slugOr(in.Slug, in.Title)).
		Set("category", in.Category).
		Set("date", in.Date).
		Set("summary", in.Summary).
		Set("content", in.Content).
		Set("link", in.Link)
}

func (in *newsInput) richText() *string { return &in.Content }

func (in *newsInput) clean() {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Content = richtext.Sanitize(normalizeNewlines(in.Content))
}

type projectInput struct {
	Title       string `form:"title" validate:"required,max=200"`
	Slug        string `form:"slug" validate:"omitempty,slug"`
	Category    string `form:"category" validate:"required,max=60"`
	Date        string `form:"date" validate:"required,isodate"`
	Description string `form:"description" validate:"required,max=1000"`
	Content     string `form:"content"`
	Tags        string `form:"tags"`
	Link        string `form:"link" validate:"omitempty,http_url"`
	GitHub      string `form:"github" validate:"omitempty,http_url"`
}

func projectFrom(p content.Project) *projectInput {
	return &projectInput{
		Title: p.Title, Slug: p.Slug, Category: p.Category, Date: p.Date,
		Description: p.Description, Content: p.Content, Tags: strings.Join(p.Tags, ", "),
		Link: p.Link, GitHub: p.GitHub,
	}
}

func (in *projectInput) fields() []formField {
	return []formField{
		{Name: "title", Label: "Title", Type: "text", Value: in.Title},
		{Name: "slug", Label: "Slug", Type: "text", Value: in.Slug, Help: "Leave empty to derive it from the title."},
		{Name: "category", Label: "Category", Type: "text", Value: in.Category},
		{Name: "date", Label: "Date", Type: "date", Value: in.Date},
		{Name: "description", Label: "Description", Type: "textarea", Value: in.Description},
		{Name: "content", Label: "Details", Type: "richtext", Value: in.Content},
		{Name: "tags", Label: "Tags", Type: "text", Value: in.Tags, Help: "Comma separated."},
		{Name: "link", Label: "Project site", Type: "url", Value: in.Link},
		{Name: "github", Label: "Source code", Type: "url", Value: in.GitHub},
	}
}

func (in *projectInput) apiForm() *api.Form {
	return api.NewForm().
		Set("title", in.Title).
		Set("slug", slugOr(in.Slug, in.Title)).
		Set("category", in.Category).
		Set("date", in.Date).
		Set("description", in.Description).
		Set("content", in.Content).
		Add("tags", splitList(in.Tags)...).
		Set("link", in.Link).
		Set("github", in.GitHub)
}

func (in *projectInput) richText() *string { return &in.Content }

func (in *projectInput) clean() {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Content = richtext.Sanitize(normalizeNewlines(in.Content))
}

type publicationInput struct {
	Title    string `form:"title" validate:"required,max=300"`
	Slug     string `form:"slug" validate:"omitempty,slug"`
	Date     string `form:"date" validate:"required,isodate"`
	Abstract string `form:"abstract" validate:"required"`
	Venue    string `form:"venue" validate:"max=200"`
	Authors  string `form:"authors" validate:"required"`
	Tags     string `form:"tags"`
	DOI      string `form:"doi" validate:"max=200"`
	Link     string `form:"link" validate:"omitempty,http_url"`
	PDF      string `form:"pdf" validate:"omitempty,http_url"`
}

func publicationFrom(p content.Publication) *publicationInput {
	return &publicationInput{
		Title: p.Title, Slug: p.Slug, Date: p.Date, Abstract: p.Abstract, Venue: p.Venue,
		Authors: strings.Join(p.Authors, ", "), Tags: strings.Join(p.Tags, ", "),
		DOI: p.DOI, Link: p.Link, PDF: p.PDF,
	}
}

func (in *publicationInput) fields() []formField {
	return []formField{
		{Name: "title", Label: "Title", Type: "text", Value: in.Title},
		{Name: "slug", Label: "Slug", Type: "text", Value: in.Slug, Help: "Leave empty to derive it from the title."},
		{Name: "date", Label: "Date", Type: "date", Value: in.Date},
		{Name: "authors", Label: "Authors", Type: "text", Value: in.Authors, Help: "Comma separated, in order."},
		{Name: "venue", Label: "Venue", Type: "text", Value: in.Venue},
		{Name: "abstract", Label: "Abstract", Type: "richtext", Value: in.Abstract},
		{Name: "tags", Label: "Tags", Type: "text", Value: in.Tags, Help: "Comma separated. Tags drive the category filter."},
		{Name: "doi", Label: "DOI", Type: "text", Value: in.DOI},
		{Name: "link", Label: "Publisher link", Type: "url", Value: in.Link},
		{Name: "pdf", Label: "PDF", Type: "url", Value: in.PDF},
	}
}

func (in *publicationInput) apiForm() *api.Form {
	return api.NewForm().
		Set("title", in.Title).
		Set("slug", slugOr(in.Slug, in.Title)).
		Set("date", in.Date).
		Set("abstract", in.Abstract).
		Set("venue", in.Venue).
		Add("authors", splitList(in.Authors)...).
		Add("tags", splitList(in.Tags)...).
		Set("doi", in.DOI).
		Set("link", in.Link).
		Set("pdf", in.PDF)
}

func (in *publicationInput) richText() *string { return &in.Abstract }

func (in *publicationInput) clean() {
	in.Title = strings.TrimSpace(in.Title)
	in.Abstract = richtext.Sanitize(normalizeNewlines(in.Abstract))
}

type galleryInput struct {
	Title       string `form:"title" validate:"required,max=200"`
	Slug        string `form:"slug" validate:"omitempty,slug"`
	Category    string `form:"category" validate:"required,max=60"`
	Date        string `form:"date" validate:"omitempty,isodate"`
	Description string `form:"description" validate:"max=500"`
}

func galleryFrom(g content.GalleryItem) *galleryInput {
	return &galleryInput{
		Title: g.Title, Slug: g.Slug, Category: g.Category, Date: g.Date, Description: g.Description,
	}
}

func (in *galleryInput) fields() []formField {
	return []formField{
		{Name: "title", Label: "Title", Type: "text", Value: in.Title},
		{Name: "slug", Label: "Slug", Type: "text", Value: in.Slug, Help: "Leave empty to derive it from the title."},
		{Name: "category", Label: "Category", Type: "text", Value: in.Category},
		{Name: "date", Label: "Date", Type: "date", Value: in.Date},
		{Name: "description", Label: "Caption", Type: "textarea", Value: in.Description},
	}
}

func (in *galleryInput) apiForm() *api.Form {
	return api.NewForm().
		Set("title", in.Title).
		Set("slug", slugOr(in.Slug, in.Title)).
		Set("category", in.Category).
		Set("date", in.Date).
		Set("description", in.Description)
}

func (in *galleryInput) richText() *string { return nil }

func (in *galleryInput) clean() {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
}

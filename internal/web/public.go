package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/richtext"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const featuredCount = 3

// card is one row of a list page.
type card struct {
	ID       string
	Title    string
	URL      string
	Date     string
	Category string
	Tags     []string
	Excerpt  string
	Image    string
	Meta     string
}

func newsCard(n content.News) card {
	excerpt := n.Summary
	if excerpt == "" {
		excerpt = n.Content
	}
	return card{
		ID:       n.ID,
		Title:    n.Title,
		URL:      "/news/" + url.PathEscape(n.Slug),
		Date:     n.Date,
		Category: n.Category,
		Excerpt:  richtext.PlainText(excerpt, 200),
		Image:    n.Image,
	}
}

func projectCard(p content.Project) card {
	return card{
		ID:       p.ID,
		Title:    p.Title,
		URL:      "/projects/" + url.PathEscape(p.Slug),
		Date:     p.Date,
		Category: p.Category,
		Tags:     p.Tags,
		Excerpt:  richtext.PlainText(p.Description, 200),
		Image:    p.Image,
	}
}

func publicationCard(p content.Publication) card {
	return card{
		ID:      p.ID,
		Title:   p.Title,
		URL:     "/publications/" + url.PathEscape(p.Slug),
		Date:    p.Date,
		Tags:    p.Tags,
		Excerpt: richtext.PlainText(p.Abstract, 200),
		Image:   p.Image,
		Meta:    joinNonEmpty(" · ", p.AuthorLine(), p.Venue),
	}
}

func galleryCard(g content.GalleryItem) card {
	return card{
		ID:       g.ID,
		Title:    g.Title,
		Date:     g.Date,
		Category: g.Category,
		Excerpt:  g.Description,
		Image:    g.Image,
	}
}

// listing is the body of a filterable list page.
type listing struct {
	Kind        content.Kind
	Action      string
	State       query.State
	Categories  []string
	SortOptions []query.SortOption
	Count       int
	Items       []card
}

// stateFrom reads the query state from the URL. A category no item carries
// any more falls back to "all".
func stateFrom[T any](c *gin.Context, spec query.Spec[T], items []T) query.State {
	st := query.State{
		Search:   c.Query("q"),
		Category: c.DefaultQuery("category", query.AllCategories),
		Sort:     query.ParseSortKey(c.Query("sort")),
	}
	if st.Category == "" || !query.ValidCategory(spec, items, st.Category) {
		st.Category = query.AllCategories
	}
	return st
}

func buildListing[T any](c *gin.Context, kind content.Kind, spec query.Spec[T], items []T, toCard func(T) card) listing {
	st := stateFrom(c, spec, items)
	res := query.Apply(spec, items, st)
	cards := make([]card, len(res.Visible))
	for i, it := range res.Visible {
		cards[i] = toCard(it)
	}
	return listing{
		Kind:        kind,
		Action:      "/" + kind.Path(),
		State:       st,
		Categories:  query.DeriveCategories(spec, items),
		SortOptions: query.SortKeys(),
		Count:       res.Count,
		Items:       cards,
	}
}

func listHandler[T any](s *Server, kind content.Kind, spec query.Spec[T], load func(context.Context) ([]T, error), toCard func(T) card, blurb string) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := load(c.Request.Context())
		if err != nil {
			s.fail(c, err)
			return
		}
		body := buildListing(c, kind, spec, items, toCard)
		s.render(c, http.StatusOK, "list", s.meta(c, kind.Label(), blurb), body)
	}
}

func (s *Server) newsList(c *gin.Context) {
	listHandler(s, content.KindNews, content.NewsSpec, s.content.News, newsCard,
		"Latest news, awards and talks.")(c)
}

func (s *Server) projectList(c *gin.Context) {
	listHandler(s, content.KindProjects, content.ProjectSpec, s.content.Projects, projectCard,
		"Research and software projects.")(c)
}

func (s *Server) publicationList(c *gin.Context) {
	listHandler(s, content.KindPublications, content.PublicationSpec, s.content.Publications, publicationCard,
		"Peer-reviewed papers, preprints and conference proceedings.")(c)
}

func (s *Server) gallery(c *gin.Context) {
	items, err := s.content.Gallery(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	body := buildListing(c, content.KindGallery, content.GallerySpec, items, galleryCard)
	s.render(c, http.StatusOK, "gallery", s.meta(c, "Gallery", "Photos from the field, the lab and conferences."), body)
}

type homeBody struct {
	News         []card
	Projects     []card
	Publications []card
}

func newest[T any](spec query.Spec[T], items []T, toCard func(T) card) []card {
	res := query.Apply(spec, items, query.DefaultState())
	n := min(featuredCount, res.Count)
	out := make([]card, n)
	for i := range n {
		out[i] = toCard(res.Visible[i])
	}
	return out
}

// home loads the three featured sections in parallel. A section whose
// collection fails is left empty; the page fails only when all do.
func (s *Server) home(c *gin.Context) {
	var (
		body homeBody
		errs = make([]error, 3)
		g    errgroup.Group
		ctx  = c.Request.Context()
	)
	g.Go(func() error {
		items, err := s.content.News(ctx)
		errs[0] = err
		body.News = newest(content.NewsSpec, items, newsCard)
		return nil
	})
	g.Go(func() error {
		items, err := s.content.Projects(ctx)
		errs[1] = err
		body.Projects = newest(content.ProjectSpec, items, projectCard)
		return nil
	})
	g.Go(func() error {
		items, err := s.content.Publications(ctx)
		errs[2] = err
		body.Publications = newest(content.PublicationSpec, items, publicationCard)
		return nil
	})
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			s.logger.Warn("home section unavailable", zap.Error(err))
		}
	}
	if failed == len(errs) {
		s.fail(c, errors.Join(errs...))
		return
	}
	s.render(c, http.StatusOK, "home", s.meta(c, "", ""), body)
}

func (s *Server) about(c *gin.Context) {
	s.render(c, http.StatusOK, "about", s.meta(c, "About", s.cfg.Site.Tagline), nil)
}

type link struct {
	Label string
	URL   string
}

type detailBody struct {
	Kind     content.Kind
	Title    string
	Date     string
	Category string
	Tags     []string
	Subtitle string
	Image    string
	Body     template.HTML
	Links    []link
}

func links(pairs ...string) []link {
	var out []link
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			out = append(out, link{Label: pairs[i], URL: pairs[i+1]})
		}
	}
	return out
}

func (s *Server) detail(c *gin.Context, d detailBody, description string) {
	meta := s.meta(c, d.Title, richtext.PlainText(description, 160))
	meta.OGType = "article"
	meta.Image = d.Image
	if len(d.Tags) > 0 {
		meta.Keywords = append(append([]string{}, d.Tags...), s.cfg.Site.Keywords...)
	}
	s.render(c, http.StatusOK, "detail", meta, d)
}

func (s *Server) newsDetail(c *gin.Context) {
	n, err := s.content.NewsBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.detail(c, detailBody{
		Kind:     content.KindNews,
		Title:    n.Title,
		Date:     n.Date,
		Category: n.Category,
		Image:    n.Image,
		Body:     template.HTML(richtext.Sanitize(n.Content)),
		Links:    links("Read more", n.Link),
	}, firstNonEmpty(n.Summary, n.Content))
}

func (s *Server) projectDetail(c *gin.Context) {
	p, err := s.content.ProjectBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	body := p.Content
	if body == "" {
		body = "<p>" + template.HTMLEscapeString(p.Description) + "</p>"
	}
	s.detail(c, detailBody{
		Kind:     content.KindProjects,
		Title:    p.Title,
		Date:     p.Date,
		Category: p.Category,
		Tags:     p.Tags,
		Subtitle: p.Description,
		Image:    p.Image,
		Body:     template.HTML(richtext.Sanitize(body)),
		Links:    links("Project site", p.Link, "Source code", p.GitHub),
	}, p.Description)
}

func (s *Server) publicationDetail(c *gin.Context) {
	p, err := s.content.PublicationBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	doi := ""
	if p.DOI != "" {
		doi = "https://doi.org/" + strings.TrimPrefix(p.DOI, "https://doi.org/")
	}
	s.detail(c, detailBody{
		Kind:     content.KindPublications,
		Title:    p.Title,
		Date:     p.Date,
		Tags:     p.Tags,
		Subtitle: joinNonEmpty(" · ", p.AuthorLine(), p.Venue),
		Image:    p.Image,
		Body:     template.HTML(richtext.Sanitize(p.Abstract)),
		Links:    links("DOI", doi, "Publisher", p.Link, "PDF", p.PDF),
	}, p.Abstract)
}

func joinNonEmpty(sep string, vals ...string) string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type contactInput struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email"`
	Subject string `form:"subject" validate:"required,max=200"`
	Message string `form:"message" validate:"required,max=5000"`
}

type contactBody struct {
	Input  contactInput
	Errors map[string]string
}

func (s *Server) contactForm(c *gin.Context) {
	s.render(c, http.StatusOK, "contact", s.meta(c, "Contact", "Get in touch."), contactBody{})
}

func (s *Server) contactSubmit(c *gin.Context) {
	var in contactInput
	_ = c.ShouldBind(&in)
	if errs := validationErrors(validate.Struct(in)); len(errs) > 0 {
		s.render(c, http.StatusUnprocessableEntity, "contact", s.meta(c, "Contact", ""), contactBody{Input: in, Errors: errs})
		return
	}

	err := s.api.SendContact(c.Request.Context(), api.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
	})
	if err != nil {
		s.logger.Error("sending contact message", zap.Error(err))
		nowFlash(c, flashError, "Your message could not be sent. Please try again later.")
		s.render(c, http.StatusBadGateway, "contact", s.meta(c, "Contact", ""), contactBody{Input: in})
		return
	}
	setFlash(c, flashSuccess, "Thanks! Your message has been sent.")
	c.Redirect(http.StatusSeeOther, "/contact")
}

// validationErrors turns validator failures into per-field messages keyed
// by form field name.
func validationErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return "Must be at most " + fe.Param() + " characters."
	case "url", "http_url":
		return "Enter a full http(s) URL."
	case "slug":
		return "Use lowercase letters, digits and dashes."
	case "isodate":
		return "Use a date like 2024-05-31."
	}
	return "Invalid value."
}

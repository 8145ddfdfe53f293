package web

import (
	"net/http"
	"strings"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/config"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PageMeta is the per-page SEO block rendered into <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string
	OGType      string
	Image       string
	Keywords    []string
}

// page is the data every template receives.
type page struct {
	Meta  PageMeta
	Site  config.SiteConfig
	Flash *flash
	User  session.User
	Admin bool
	Body  any
}

type errorBody struct {
	Status  int
	Heading string
	Message string
}

func errorPage(data any, msg string) any {
	p, _ := data.(page)
	p.Body = errorBody{Status: http.StatusInternalServerError, Heading: "Something went wrong", Message: msg}
	return p
}

// meta builds page metadata, falling back to the site identity for anything
// the page does not set.
func (s *Server) meta(c *gin.Context, title, description string) PageMeta {
	site := s.cfg.Site
	m := PageMeta{
		Title:       site.Name,
		Description: site.Description,
		URL:         strings.TrimRight(site.URL, "/") + c.Request.URL.Path,
		OGType:      "website",
		Keywords:    site.Keywords,
	}
	if title != "" {
		m.Title = title + " | " + site.Name
	}
	if description != "" {
		m.Description = description
	}
	return m
}

func (s *Server) render(c *gin.Context, status int, name string, meta PageMeta, body any) {
	p := page{
		Meta:  meta,
		Site:  s.cfg.Site,
		Flash: takeFlash(c),
		Body:  body,
	}
	if sess := sessionFrom(c); sess != nil {
		p.User = sess.User()
		p.Admin = session.Allowed(p.User)
	}
	c.HTML(status, name, p)
}

func (s *Server) notFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, "error", s.meta(c, "Not found", ""), errorBody{
		Status:  http.StatusNotFound,
		Heading: "Page not found",
		Message: "The page you are looking for does not exist or was removed.",
	})
}

// fail maps a content error onto an error page.
func (s *Server) fail(c *gin.Context, err error) {
	if api.IsNotFound(err) {
		s.notFound(c)
		return
	}
	s.logger.Error("loading content", zap.String("path", c.Request.URL.Path), zap.Error(err))
	s.render(c, http.StatusBadGateway, "error", s.meta(c, "Unavailable", ""), errorBody{
		Status:  http.StatusBadGateway,
		Heading: "Content unavailable",
		Message: "The content service could not be reached. Please try again shortly.",
	})
}

func (s *Server) recovered(c *gin.Context, v any) {
	s.logger.Error("panic", zap.Any("value", v), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
	s.render(c, http.StatusInternalServerError, "error", s.meta(c, "Error", ""), errorBody{
		Status:  http.StatusInternalServerError,
		Heading: "Something went wrong",
		Message: "An unexpected error occurred.",
	})
	c.Abort()
}

// Package web serves the public portfolio site and its admin area.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/config"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Content is the read side of the site. *feed.Source implements it.
type Content interface {
	News(ctx context.Context) ([]content.News, error)
	Projects(ctx context.Context) ([]content.Project, error)
	Publications(ctx context.Context) ([]content.Publication, error)
	Gallery(ctx context.Context) ([]content.GalleryItem, error)
	NewsBySlug(ctx context.Context, slug string) (content.News, error)
	ProjectBySlug(ctx context.Context, slug string) (content.Project, error)
	PublicationBySlug(ctx context.Context, slug string) (content.Publication, error)
	Invalidate(kind content.Kind) error
}

type Server struct {
	cfg      *config.Config
	content  Content
	api      *api.Client
	sessions *session.Registry
	logger   *zap.Logger
	metrics  *Metrics
	engine   *gin.Engine

	loginLimit   *limiter
	contactLimit *limiter

	draftsMu sync.Mutex
	drafts   map[string]*draft
}

func New(cfg *config.Config, c Content, client *api.Client, logger *zap.Logger, metrics *Metrics) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:          cfg,
		content:      c,
		api:          client,
		sessions:     session.NewRegistry(client, cfg.SessionTTL(), logger.Named("session")),
		logger:       logger,
		metrics:      metrics,
		loginLimit:   newLimiter(cfg.Server.LoginRate),
		contactLimit: newLimiter(cfg.Server.LoginRate),
		drafts:       make(map[string]*draft),
	}

	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	// Rate limits key on ClientIP, so forwarded headers count only from
	// configured proxies.
	if err := e.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("server.trusted_proxies: %w", err)
	}
	e.HTMLRender = r
	e.Use(requestID(), s.accessLog(), gin.CustomRecoveryWithWriter(io.Discard, s.recovered), s.peekSession())
	e.NoRoute(func(c *gin.Context) { s.notFound(c) })
	s.engine = e
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.engine

	e.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	e.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	e.GET("/", s.home)
	e.GET("/about", s.about)
	e.GET("/news", s.newsList)
	e.GET("/news/:slug", s.newsDetail)
	e.GET("/projects", s.projectList)
	e.GET("/projects/:slug", s.projectDetail)
	e.GET("/publications", s.publicationList)
	e.GET("/publications/:slug", s.publicationDetail)
	e.GET("/gallery", s.gallery)
	e.GET("/contact", s.contactForm)
	e.POST("/contact", s.contactLimit.middleware(s), s.contactSubmit)

	e.GET("/admin/login", s.loginForm)
	e.POST("/admin/login", s.loginLimit.middleware(s), s.loginSubmit)
	e.POST("/admin/logout", s.logout)

	admin := e.Group("/admin", RequireRole(s.sessions))
	admin.GET("", s.dashboard)
	for _, kind := range content.Kinds() {
		h := &adminKind{s: s, kind: kind}
		g := admin.Group("/" + kind.Path())
		g.GET("", h.list)
		g.GET("/new", h.newForm)
		g.POST("", h.create)
		g.GET("/:id/edit", h.editForm)
		g.POST("/:id", h.update)
		g.POST("/:id/delete", h.remove)
	}
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.janitor(ctx)
		return nil
	})
	return g.Wait()
}

// janitor drops expired sessions, abandoned drafts and idle rate limiters.
func (s *Server) janitor(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n := s.sessions.Sweep()
			d := s.sweepDrafts(now.Add(-s.cfg.SessionTTL()))
			s.loginLimit.sweep(now.Add(-10 * time.Minute))
			s.contactLimit.sweep(now.Add(-10 * time.Minute))
			if n > 0 || d > 0 {
				s.logger.Debug("swept", zap.Int("sessions", n), zap.Int("drafts", d))
			}
		}
	}
}

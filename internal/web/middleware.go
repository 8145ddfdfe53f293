package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionCookie = "portfolio_session"

	ctxRequestID = "request_id"
	ctxSession   = "session"
	ctxSessionID = "session_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.observeRequest(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("client", c.ClientIP()),
		}
		switch {
		case status >= 500:
			s.logger.Error("request", fields...)
		case status >= 400:
			s.logger.Warn("request", fields...)
		default:
			s.logger.Info("request", fields...)
		}
	}
}

// peekSession attaches the visitor's session, if any, without gating.
func (s *Server) peekSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(sessionCookie); err == nil {
			if sess, ok := s.sessions.Get(id); ok {
				c.Set(ctxSession, sess)
				c.Set(ctxSessionID, id)
			}
		}
		c.Next()
	}
}

// RequireRole lets a request through only when its session cookie belongs to
// a signed-in admin, super-admin or author. Anyone else is redirected to the
// login page and nothing protected is rendered.
func RequireRole(reg *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err == nil {
			if sess, ok := reg.Get(id); ok && session.Allowed(sess.User()) {
				c.Set(ctxSession, sess)
				c.Set(ctxSessionID, id)
				c.Next()
				return
			}
		}
		c.Redirect(http.StatusFound, "/admin/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	if v, ok := c.Get(ctxSession); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}

// safeNext keeps post-login redirects inside the admin area.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/admin") || strings.HasPrefix(next, "//") ||
		strings.HasPrefix(next, "/admin/login") || strings.Contains(next, "\\") {
		return "/admin"
	}
	return next
}

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiter applies a token bucket per client IP.
type limiter struct {
	every rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client
}

// newLimiter allows perMinute requests per minute per client.
func newLimiter(perMinute int) *limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &limiter{
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		clients: make(map[string]*client),
	}
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl, ok := l.clients[key]
	if !ok {
		cl = &client{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = cl
	}
	cl.seen = time.Now()
	return cl.lim.Allow()
}

// sweep forgets clients not seen since cutoff.
func (l *limiter) sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, cl := range l.clients {
		if cl.seen.Before(cutoff) {
			delete(l.clients, k)
		}
	}
}

func (l *limiter) middleware(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.allow(c.ClientIP()) {
			c.Next()
			return
		}
		s.logger.Warn("rate limited", zap.String("client", c.ClientIP()), zap.String("path", c.Request.URL.Path))
		c.Header("Retry-After", "60")
		s.render(c, http.StatusTooManyRequests, "error", s.meta(c, "Slow down", ""), errorBody{
			Status:  http.StatusTooManyRequests,
			Heading: "Too many attempts",
			Message: "Please wait a minute before trying again.",
		})
		c.Abort()
	}
}

// Package feed retrieves content collections and items, serving them from the
// local cache while it is fresh and falling back to stale copies when the API
// is unreachable.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/cache"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher is the slice of the API client the source reads through.
type Fetcher interface {
	ListRaw(ctx context.Context, kind content.Kind) (json.RawMessage, error)
	GetRaw(ctx context.Context, kind content.Kind, slug string) (json.RawMessage, error)
}

// Observer receives cache outcomes, e.g. for metrics.
type Observer interface {
	CacheResult(kind content.Kind, result string)
}

const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

type Source struct {
	api      Fetcher
	cache    *cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
	observer Observer

	// one refetch per kind at a time
	mu       sync.Mutex
	inflight map[content.Kind]*sync.Mutex
}

type Option func(*Source)

func WithLogger(l *zap.Logger) Option {
	return func(s *Source) { s.logger = l }
}

func WithObserver(o Observer) Option {
	return func(s *Source) { s.observer = o }
}

func NewSource(f Fetcher, c *cache.Cache, ttl time.Duration, opts ...Option) *Source {
	s := &Source{
		api:      f,
		cache:    c,
		ttl:      ttl,
		logger:   zap.NewNop(),
		inflight: make(map[content.Kind]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Source) observe(kind content.Kind, result string) {
	if s.observer != nil {
		s.observer.CacheResult(kind, result)
	}
}

func (s *Source) kindLock(kind content.Kind) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.inflight[kind]
	if !ok {
		m = &sync.Mutex{}
		s.inflight[kind] = m
	}
	return m
}

// collection returns the raw payload for kind following the staleness policy.
func (s *Source) collection(ctx context.Context, kind content.Kind) (json.RawMessage, error) {
	entry, cacheErr := s.cache.Collection(string(kind))
	if cacheErr == nil && entry.Age(time.Now()) < s.ttl {
		s.observe(kind, ResultHit)
		return entry.Payload, nil
	}

	lock := s.kindLock(kind)
	lock.Lock()
	defer lock.Unlock()

	// another request may have refreshed while we waited
	if e, err := s.cache.Collection(string(kind)); err == nil && e.Age(time.Now()) < s.ttl {
		s.observe(kind, ResultHit)
		return e.Payload, nil
	}

	data, err := s.api.ListRaw(ctx, kind)
	if err != nil {
		if cacheErr == nil {
			s.observe(kind, ResultStale)
			s.logger.Warn("serving stale collection",
				zap.String("kind", string(kind)),
				zap.Duration("age", entry.Age(time.Now())),
				zap.Error(err))
			return entry.Payload, nil
		}
		return nil, fmt.Errorf("fetching %s: %w", kind, err)
	}

	s.observe(kind, ResultMiss)
	if err := s.cache.PutCollection(string(kind), data); err != nil {
		s.logger.Warn("caching collection failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	s.logger.Debug("collection refreshed", zap.String("kind", string(kind)))
	return data, nil
}

func (s *Source) item(ctx context.Context, kind content.Kind, slug string) (json.RawMessage, error) {
	entry, cacheErr := s.cache.Item(string(kind), slug)
	if cacheErr == nil && entry.Age(time.Now()) < s.ttl {
		s.observe(kind, ResultHit)
		return entry.Payload, nil
	}

	data, err := s.api.GetRaw(ctx, kind, slug)
	if err != nil {
		if cacheErr == nil && !api.IsNotFound(err) {
			s.observe(kind, ResultStale)
			s.logger.Warn("serving stale item",
				zap.String("kind", string(kind)), zap.String("slug", slug), zap.Error(err))
			return entry.Payload, nil
		}
		return nil, fmt.Errorf("fetching %s/%s: %w", kind, slug, err)
	}

	s.observe(kind, ResultMiss)
	if err := s.cache.PutItem(string(kind), slug, data); err != nil {
		s.logger.Warn("caching item failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	return data, nil
}

func decodeList[T any](kind content.Kind, data json.RawMessage) ([]T, error) {
	out := []T{}
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", kind, err)
	}
	return out, nil
}

func decodeItem[T any](kind content.Kind, data json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %s item: %w", kind, err)
	}
	return out, nil
}

func List[T any](ctx context.Context, s *Source, kind content.Kind) ([]T, error) {
	data, err := s.collection(ctx, kind)
	if err != nil {
		return nil, err
	}
	return decodeList[T](kind, data)
}

func BySlug[T any](ctx context.Context, s *Source, kind content.Kind, slug string) (T, error) {
	data, err := s.item(ctx, kind, slug)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeItem[T](kind, data)
}

func (s *Source) News(ctx context.Context) ([]content.News, error) {
	return List[content.News](ctx, s, content.KindNews)
}

func (s *Source) Projects(ctx context.Context) ([]content.Project, error) {
	return List[content.Project](ctx, s, content.KindProjects)
}

func (s *Source) Publications(ctx context.Context) ([]content.Publication, error) {
	return List[content.Publication](ctx, s, content.KindPublications)
}

func (s *Source) Gallery(ctx context.Context) ([]content.GalleryItem, error) {
	return List[content.GalleryItem](ctx, s, content.KindGallery)
}

func (s *Source) NewsBySlug(ctx context.Context, slug string) (content.News, error) {
	return BySlug[content.News](ctx, s, content.KindNews, slug)
}

func (s *Source) ProjectBySlug(ctx context.Context, slug string) (content.Project, error) {
	return BySlug[content.Project](ctx, s, content.KindProjects, slug)
}

func (s *Source) PublicationBySlug(ctx context.Context, slug string) (content.Publication, error) {
	return BySlug[content.Publication](ctx, s, content.KindPublications, slug)
}

// Invalidate forgets everything cached for kind, e.g. after an admin edit.
func (s *Source) Invalidate(kind content.Kind) error {
	return s.cache.Invalidate(string(kind))
}

// FetchResult reports a full refresh; one failing collection does not stop
// the others.
type FetchResult struct {
	Counts map[content.Kind]int
	Errors []error
}

// FetchAll refetches every collection in parallel, bypassing the TTL. A
// successful refetch also drops the kind's cached items so detail pages
// reload on next view.
func (s *Source) FetchAll(ctx context.Context) FetchResult {
	var (
		mu     sync.Mutex
		result = FetchResult{Counts: make(map[content.Kind]int)}
		g      errgroup.Group
	)

	for _, kind := range content.Kinds() {
		g.Go(func() error {
			data, err := s.api.ListRaw(ctx, kind)
			if err == nil {
				err = s.cache.Invalidate(string(kind))
			}
			if err == nil {
				err = s.cache.PutCollection(string(kind), data)
			}
			var n int
			if err == nil {
				var items []json.RawMessage
				if uerr := json.Unmarshal(data, &items); uerr == nil {
					n = len(items)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", kind, err))
				return nil
			}
			result.Counts[kind] = n
			return nil
		})
	}
	_ = g.Wait()

	if len(result.Errors) < len(content.Kinds()) {
		if err := s.cache.SetLastRefresh(); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}
	return result
}

// Err joins the per-collection errors of a refresh.
func (r FetchResult) Err() error {
	return errors.Join(r.Errors...)
}

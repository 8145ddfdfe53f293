package cmd

import (
	"fmt"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/cache"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/config"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/feed"
)

// backend bundles the API client, the local cache and the content fetcher
// built on them.
type backend struct {
	client *api.Client
	db     *cache.Cache
	source *feed.Source
}

func (b *backend) Close() error {
	return b.db.Close()
}

func openBackend(opts ...feed.Option) (*backend, error) {
	client, err := api.New(cfg.API.BaseURL, cfg.APITimeout())
	if err != nil {
		return nil, err
	}
	db, err := cache.Open(config.CachePath())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	opts = append([]feed.Option{feed.WithLogger(logger.Named("feed"))}, opts...)
	return &backend{
		client: client,
		db:     db,
		source: feed.NewSource(client, db, cfg.RefreshDuration(), opts...),
	}, nil
}

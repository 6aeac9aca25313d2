package container

import (
	"github.com/libnare/sermcs/cmd/sermcs/handlers"
	"github.com/libnare/sermcs/cmd/sermcs/repository"
	"github.com/libnare/sermcs/cmd/sermcs/service"
	"github.com/libnare/sermcs/common/bootstrap"
	"github.com/libnare/sermcs/common/clients"
	"github.com/libnare/sermcs/common/security"
)

// Container holds all initialized services and repositories (singleton
// pattern: everything is created once at startup and shared by requests)
type Container struct {
	Components *bootstrap.Components

	// Repositories
	OriginRepo *repository.OriginRepository

	// Services
	Resolver   *service.ResolverService
	Cache      *service.CacheStore
	Fetcher    *service.FetcherService
	Transcoder *service.TranscoderService
	Media      *service.MediaService

	// Handlers
	MediaHandler *handlers.MediaHandler
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	originRepo := repository.NewOriginRepository(components.DB)

	resolver := service.NewResolverService(
		originRepo,
		components.Records,
		cfg.Cache.ResolverTTL,
		log,
	)

	cacheStore, err := service.NewCacheStore(cfg.Cache.Dir, log)
	if err != nil {
		return nil, err
	}

	httpClient := clients.NewHTTPClient(log)
	validator := security.NewOriginValidator(cfg.Fetch.AllowPrivate)
	fetcher := service.NewFetcherService(httpClient, validator, cfg.Fetch, log)

	transcoder := service.NewTranscoderService(cfg.Transcode, cfg.Cache.TempDir, log)

	media := service.NewMediaService(
		resolver,
		cacheStore,
		fetcher,
		transcoder,
		cfg.Cache.TempDir,
		cfg.Transcode.WebPublic,
		log,
	)

	return &Container{
		Components:   components,
		OriginRepo:   originRepo,
		Resolver:     resolver,
		Cache:        cacheStore,
		Fetcher:      fetcher,
		Transcoder:   transcoder,
		Media:        media,
		MediaHandler: handlers.NewMediaHandler(components, media),
	}, nil
}

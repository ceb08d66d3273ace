package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"conti/internal/app/profiles"
	"conti/internal/app/setlists"
	"conti/internal/app/songs"
	"conti/internal/auth"
	"conti/internal/blob"
	"conti/internal/cache"
	"conti/internal/http/middleware"
	"conti/internal/httpapi"
	"conti/internal/store"
	"conti/shared/go/config"
	sharedmw "conti/shared/go/middleware"
)

// newHTTPHandler builds the services and the middleware chain. The returned
// cleanup closes connections opened here.
func newHTTPHandler(ctx context.Context, cfg *config.Config, dataStore *store.Store) (http.Handler, func(), error) {
	cleanup := func() {}

	var sheets blob.Remover = blob.Noop{}
	bucket := cfg.Storage.Bucket
	if cfg.Storage.Enabled() {
		s3Store, err := blob.NewS3(ctx, blob.S3Config{
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PathStyle:       cfg.Storage.PathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("init sheet storage: %w", err)
		}
		sheets = s3Store
		bucket = s3Store.Bucket()
		log.Info().Str("bucket", bucket).Msg("sheet storage enabled")
	} else {
		log.Info().Msg("sheet storage not configured, image removal disabled")
	}

	var views setlists.Cache = cache.Noop{}
	if cfg.Cache.Enabled {
		if client := cache.NewClient(ctx, cache.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TLS:      cfg.Cache.TLS,
		}); client != nil {
			views = cache.NewRedis(client, cfg.Cache.TTL, "")
			cleanup = func() { _ = client.Close() }
			log.Info().Str("addr", cfg.Cache.Addr).Dur("ttl", cfg.Cache.TTL).Msg("setlist cache enabled")
		}
	}

	profileSvc := profiles.New(dataStore)
	setlistSvc := setlists.New(dataStore, profileSvc, views)
	songSvc := songs.New(dataStore, sheets, bucket)

	routes := httpapi.New(setlistSvc, songSvc, profileSvc, dataStore).Routes()
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)

	var handler http.Handler = routes
	handler = auth.Middleware(verifier)(handler)
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = sharedmw.RequestLogging()(handler)
	handler = sharedmw.Recovery()(handler)

	return handler, cleanup, nil
}

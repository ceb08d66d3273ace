// Package cache keeps rendered setlist views in Redis so shared links do not
// hit Postgres on every open.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"conti/shared/go/models"
)

const defaultPrefix = "conti:setlist:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
	TTL      time.Duration
	Prefix   string
}

// NewClient connects to Redis and pings it. It returns nil when the server
// cannot be reached so callers can run without a cache.
func NewClient(ctx context.Context, opts Options) *redis.Client {
	var tlsConf *tls.Config
	if opts.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: tlsConf,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis unavailable, setlist cache disabled")
		_ = client.Close()
		return nil
	}
	return client
}

// Redis caches setlist views as JSON. Each setlist has a generation counter
// that writers bump; views are stored under the generation their reader saw,
// so a view loaded before a write is never served after it. Cache failures
// are logged and treated as misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	genTTL time.Duration
	prefix string
}

// NewRedis wraps client. A zero TTL defaults to 30 seconds.
func NewRedis(client *redis.Client, ttl time.Duration, prefix string) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, ttl: ttl, genTTL: 24*time.Hour + ttl, prefix: prefix}
}

func (c *Redis) genKey(id string) string { return c.prefix + "gen:" + id }

func (c *Redis) viewKey(id string, gen int64) string {
	return c.prefix + id + ":" + strconv.FormatInt(gen, 10)
}

// generation returns the current generation of id, 0 when it was never
// bumped, or -1 when Redis could not answer.
func (c *Redis) generation(ctx context.Context, id string) int64 {
	gen, err := c.client.Get(ctx, c.genKey(id)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0
	case err != nil:
		log.Warn().Err(err).Str("setlist_id", id).Msg("setlist cache generation read failed")
		return -1
	}
	return gen
}

// GetSetlist returns the cached view of id and the generation it was looked
// up under. Pass that generation to SetSetlist after loading a miss.
func (c *Redis) GetSetlist(ctx context.Context, id string) (*models.SetlistWithSongs, int64, bool) {
	gen := c.generation(ctx, id)
	if gen < 0 {
		return nil, gen, false
	}
	raw, err := c.client.Get(ctx, c.viewKey(id, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("setlist_id", id).Msg("setlist cache read failed")
		}
		return nil, gen, false
	}
	var view models.SetlistWithSongs
	if err := json.Unmarshal(raw, &view); err != nil {
		log.Warn().Err(err).Str("setlist_id", id).Msg("discarding corrupt setlist cache entry")
		return nil, gen, false
	}
	return &view, gen, true
}

// SetSetlist stores view under generation gen. A negative gen stores nothing.
func (c *Redis) SetSetlist(ctx context.Context, gen int64, view *models.SetlistWithSongs) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		log.Warn().Err(err).Str("setlist_id", view.ID).Msg("encode setlist cache entry")
		return
	}
	if err := c.client.Set(ctx, c.viewKey(view.ID, gen), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("setlist_id", view.ID).Msg("setlist cache write failed")
	}
}

// InvalidateSetlist bumps the generation of id. Views cached under earlier
// generations stop being served and expire on their own.
func (c *Redis) InvalidateSetlist(ctx context.Context, id string) {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.genKey(id))
	pipe.Expire(ctx, c.genKey(id), c.genTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("setlist_id", id).Msg("setlist cache invalidation failed")
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) GetSetlist(context.Context, string) (*models.SetlistWithSongs, int64, bool) {
	return nil, -1, false
}

func (Noop) SetSetlist(context.Context, int64, *models.SetlistWithSongs) {}

func (Noop) InvalidateSetlist(context.Context, string) {}

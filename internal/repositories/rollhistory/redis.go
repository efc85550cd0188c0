package rollhistory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

const (
	// Keys: grimoire:rolls holds ids newest first, grimoire:roll:{id} the entry.
	listKey        = "grimoire:rolls"
	entryKeyPrefix = "grimoire:roll:"
)

// RedisConfig adds the client to the shared config
type RedisConfig struct {
	Config
	Client redis.UniversalClient
	Logger *slog.Logger
}

// Validate ensures all required dependencies are provided
func (c *RedisConfig) Validate() error {
	vb := gerr.NewValidationBuilder()

	if c.Client == nil {
		vb.RequiredField("Client")
	}

	return vb.Build()
}

type redisRepo struct {
	client redis.UniversalClient
	cfg    Config
	logger *slog.Logger
}

// NewRedis creates a repository backed by Redis. Entries and the index
// carry the TTL, so an idle session cleans itself up.
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid roll history config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &redisRepo{
		client: cfg.Client,
		cfg:    cfg.Config.withDefaults(),
		logger: logger,
	}, nil
}

var _ Repository = (*redisRepo)(nil)

func entryKey(id string) string {
	return entryKeyPrefix + id
}

func (r *redisRepo) Append(ctx context.Context, entry *Entry) error {
	if err := r.cfg.stamp(entry); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return gerr.Wrap(err, "failed to marshal roll")
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, entryKey(entry.ID), string(data), r.cfg.TTL)
	pipe.LPush(ctx, listKey, entry.ID)
	pipe.LTrim(ctx, listKey, 0, int64(r.cfg.MaxEntries-1))
	pipe.Expire(ctx, listKey, r.cfg.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return gerr.Wrap(err, "failed to store roll in Redis")
	}

	return nil
}

func (r *redisRepo) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	ids, err := r.client.LRange(ctx, listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, gerr.Wrap(err, "failed to list rolls from Redis")
	}

	entries := make([]*Entry, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			entry, err := r.get(gctx, id)
			if err != nil {
				return gerr.Wrapf(err, "failed to get roll %s", id)
			}
			entries[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// expired entries leave holes until the index is trimmed
	out := entries[:0]
	for _, e := range entries {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// get returns nil without error when the entry has expired
func (r *redisRepo) get(ctx context.Context, id string) (*Entry, error) {
	data, err := r.client.Get(ctx, entryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("roll expired", "id", id)
			return nil, nil
		}
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, gerr.Wrap(err, "failed to unmarshal roll")
	}
	return &entry, nil
}

func (r *redisRepo) Clear(ctx context.Context) error {
	ids, err := r.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return gerr.Wrap(err, "failed to list rolls from Redis")
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, entryKey(id))
	}
	keys = append(keys, listKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return gerr.Wrap(err, "failed to clear rolls in Redis")
	}
	return nil
}

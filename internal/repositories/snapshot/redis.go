package snapshot

import (
	"context"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	redisclient "github.com/KirkDiggler/rpg-compendium/internal/redis"
)

// DefaultRedisKey is where the snapshot blob lives
const DefaultRedisKey = "compendium:snapshot"

// RedisConfig contains configuration for the Redis snapshot repository
type RedisConfig struct {
	Client redisclient.Client
	Key    string
}

// Validate validates the RedisConfig
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	key    string
}

// NewRedis creates a Redis-backed snapshot repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &redisRepository{client: cfg.Client, key: cfg.Key}, nil
}

func (r *redisRepository) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	data, err := Encode(input.Snapshot)
	if err != nil {
		return nil, err
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to save snapshot to %s", r.key)
	}

	slog.Info("Saved snapshot", "key", r.key, "bytes", len(data), "packs", len(input.Snapshot.Packs))
	return &SaveOutput{Bytes: len(data)}, nil
}

func (r *redisRepository) Load(ctx context.Context, _ *LoadInput) (*LoadOutput, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("no snapshot stored at %s", r.key)
		}
		return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to load snapshot from %s", r.key)
	}

	s, report, err := Decode(data)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		slog.Warn("Snapshot field problem", "key", r.key, "warning", w)
	}
	return &LoadOutput{Snapshot: s, Report: report}, nil
}

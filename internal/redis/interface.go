package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis the snapshot store relies on. Any
// redis.UniversalClient satisfies it, including the miniredis-backed test
// client.
type Client interface {
	redis.UniversalClient
}

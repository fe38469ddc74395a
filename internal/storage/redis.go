package storage

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

const redisKeyPrefix = "watcher:addresses:"

func redisKey(scope models.ScopeKey) string {
	return redisKeyPrefix + string(scope)
}

// RedisStorage implements AddressStore using one Redis set per scope
type RedisStorage struct {
	client *redis.Client
	config *StorageConfig
	logger *logrus.Entry
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(config *StorageConfig) *RedisStorage {
	return &RedisStorage{
		config: config,
		logger: utils.ComponentLogger("storage").WithField("backend", "redis"),
	}
}

// Connect parses the redis:// URL and pings the server
func (r *RedisStorage) Connect(ctx context.Context) error {
	opts, err := redis.ParseURL(r.config.ConnectionString)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Invalid Redis URL", err)
	}
	if r.config.MaxConnections > 0 {
		opts.PoolSize = r.config.MaxConnections
	}
	if r.config.MaxIdleTime > 0 {
		opts.ConnMaxIdleTime = r.config.MaxIdleTime
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to ping Redis", err)
	}

	r.client = client
	r.logger.WithField("addr", opts.Addr).Info("Redis connected")
	return nil
}

// Close closes the client
func (r *RedisStorage) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// Ping checks connectivity
func (r *RedisStorage) Ping(ctx context.Context) error {
	if r.client == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return r.client.Ping(ctx).Err()
}

// Migrate is a no-op for Redis
func (r *RedisStorage) Migrate(ctx context.Context) error { return nil }

// Load returns the members of the scope's set
func (r *RedisStorage) Load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	if r.client == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	members, err := r.client.SMembers(ctx, redisKey(scope)).Result()
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to load tracked addresses", err)
	}
	sort.Strings(members)
	return members, nil
}

// Persist replaces the scope's set inside MULTI/EXEC
func (r *RedisStorage) Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	if r.client == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	key := redisKey(scope)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(addresses) > 0 {
			members := make([]interface{}, len(addresses))
			for i, a := range addresses {
				members[i] = a
			}
			pipe.SAdd(ctx, key, members...)
		}
		return nil
	})
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to persist tracked addresses", err)
	}
	return nil
}

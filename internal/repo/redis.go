package repo

import (
	"Go_Share/config"
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Println("init redis success")
	return client, nil
}

// NewShareStore returns the MySQL share store, fronted by the Redis cache
// when it is enabled and reachable. The returned func releases the client.
func NewShareStore(ctx context.Context, cfg config.Config, db *gorm.DB) (ShareStore, func()) {
	var store ShareStore = NewGormShareStore(db)
	if !cfg.RedisEnabled {
		return store, func() {}
	}
	client, err := OpenRedis(ctx, cfg)
	if err != nil {
		log.Printf("redis unavailable, share cache disabled: %v", err)
		return store, func() {}
	}
	return NewCachedShareStore(store, NewRedisCache(client), cfg.ShareCacheTTL), func() { _ = client.Close() }
}

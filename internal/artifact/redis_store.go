package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"yt2mp3/internal/config"
)

// ConnectRedis returns a client for cfg's Redis, or nil when Redis is
// disabled or unreachable. Artifacts then live in memory only.
func ConnectRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Println("ℹ️  Redis disabled, using in-memory storage")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("⚠️  Redis not available, using in-memory storage: %v", err)
		_ = client.Close()
		return nil
	}
	log.Println("✅ Redis connected successfully")
	return client
}

// RedisMirror stores artifact records as JSON under "artifact:<id>" and
// lets them expire with the retention window.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

func (m *RedisMirror) Save(ctx context.Context, a *Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, redisKey(a.FileID), data, m.ttl).Err()
}

func (m *RedisMirror) Load(ctx context.Context, fileID string) (*Artifact, error) {
	val, err := m.client.Get(ctx, redisKey(fileID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (m *RedisMirror) Remove(ctx context.Context, fileID string) error {
	return m.client.Del(ctx, redisKey(fileID)).Err()
}

func redisKey(fileID string) string {
	return fmt.Sprintf("artifact:%s", fileID)
}

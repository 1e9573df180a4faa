package managers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"admin-core/internal/schemas"
)

// profileCacheLifetime bounds how stale a cached profile may get; profile
// mutations invalidate eagerly on top of this.
const profileCacheLifetime = 15 * time.Minute

// CacheMgr defines the interface for the Redis-backed cache. Get returns
// redis.Nil for a missing key; callers translate that to a 404.
type CacheMgr interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetProfile(ctx context.Context, userId string) (*schemas.UserDTO, error)
	SetProfile(ctx context.Context, userId string, user *schemas.UserDTO) error
	InvalidateProfile(ctx context.Context, userId string) error
}

// CacheManager is the Redis implementation of CacheMgr.
type CacheManager struct {
	client *redis.Client
}

// NewCacheManager connects to Redis using REDIS_URL, or REDIS_HOST and
// REDIS_PORT when no URL is configured.
func NewCacheManager() (CacheMgr, error) {
	log.Info("Initializing cache manager")

	var client *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		host := os.Getenv("REDIS_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}

		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", host, port),
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis not reachable at startup: ", err)
	} else {
		log.Info("Connected to Redis")
	}

	return &CacheManager{client: client}, nil
}

func (cm *CacheManager) Ping(ctx context.Context) error {
	return cm.client.Ping(ctx).Err()
}

func (cm *CacheManager) Get(ctx context.Context, key string) (string, error) {
	return cm.client.Get(ctx, key).Result()
}

func (cm *CacheManager) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return cm.client.Set(ctx, key, value, ttl).Err()
}

func (cm *CacheManager) Delete(ctx context.Context, key string) error {
	return cm.client.Del(ctx, key).Err()
}

// GetProfile returns the cached profile of a user, or redis.Nil when the
// profile is not cached.
func (cm *CacheManager) GetProfile(ctx context.Context, userId string) (*schemas.UserDTO, error) {
	data, err := cm.client.Get(ctx, profileKey(userId)).Result()
	if err != nil {
		return nil, err
	}

	user := &schemas.UserDTO{}
	if err := json.Unmarshal([]byte(data), user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetProfile caches the profile of a user.
func (cm *CacheManager) SetProfile(ctx context.Context, userId string, user *schemas.UserDTO) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return cm.client.Set(ctx, profileKey(userId), data, profileCacheLifetime).Err()
}

// InvalidateProfile drops the cached profile of a user after a mutation.
func (cm *CacheManager) InvalidateProfile(ctx context.Context, userId string) error {
	return cm.client.Del(ctx, profileKey(userId)).Err()
}

func profileKey(userId string) string {
	return "profile:" + userId
}

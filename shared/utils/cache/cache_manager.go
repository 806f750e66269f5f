package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taskhub-backend/shared/config"
	"taskhub-backend/shared/database/models"
)

type CacheManager struct {
	client *redis.Client
	ctx    context.Context
}

// ActorCacheData is the per-user identity snapshot consulted by the auth
// middleware. It is invalidated on every user mutation so role changes and
// deactivations take effect before the token expires.
type ActorCacheData struct {
	UserID         uuid.UUID   `json:"user_id"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	IsActive       bool        `json:"is_active"`
	CachedAt       time.Time   `json:"cached_at"`
}

var (
	globalCacheManager *CacheManager
	ActorTTL           = 15 * time.Minute
)

// InitCacheManager initializes the global cache manager
func InitCacheManager() error {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		log.Printf("❌ Invalid Redis DB number: %s, using default 0", cfg.RedisDB)
		redisDB = 0
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	globalCacheManager = &CacheManager{
		client: client,
		ctx:    ctx,
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, redisDB)

	return nil
}

// GetCacheManager returns the global cache manager instance, or nil when
// Redis is unavailable. Callers treat nil as a cache miss.
func GetCacheManager() *CacheManager {
	if globalCacheManager == nil {
		if err := InitCacheManager(); err != nil {
			log.Printf("❌ Failed to initialize cache manager: %v", err)
			return nil
		}
	}
	return globalCacheManager
}

func actorKey(userID uuid.UUID) string {
	return fmt.Sprintf("actor:user:%s", userID)
}

// GetActor returns the cached identity snapshot for a user, if present.
func (cm *CacheManager) GetActor(userID uuid.UUID) (*ActorCacheData, bool) {
	raw, err := cm.client.Get(cm.ctx, actorKey(userID)).Result()
	if err != nil {
		return nil, false
	}

	var data ActorCacheData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}
	return &data, true
}

// SetActor caches an identity snapshot for a user.
func (cm *CacheManager) SetActor(user *models.User) {
	data := ActorCacheData{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		IsActive:       user.IsActive,
		CachedAt:       time.Now(),
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return
	}

	if err := cm.client.Set(cm.ctx, actorKey(user.ID), raw, ActorTTL).Err(); err != nil {
		log.Printf("⚠️ Failed to cache actor %s: %v", user.ID, err)
	}
}

// InvalidateActor drops the cached snapshot after a user mutation.
func (cm *CacheManager) InvalidateActor(userID uuid.UUID) {
	if err := cm.client.Del(cm.ctx, actorKey(userID)).Err(); err != nil {
		log.Printf("⚠️ Failed to invalidate actor cache %s: %v", userID, err)
	}
}

// InvalidateActorSafe invalidates through the global manager when available.
func InvalidateActorSafe(userID uuid.UUID) {
	if cm := GetCacheManager(); cm != nil {
		cm.InvalidateActor(userID)
	}
}

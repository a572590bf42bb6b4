package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestDefaultCacheConfig(t *testing.T) {
	config := DefaultCacheConfig()

	if config.Addr != "localhost:6379" {
		t.Errorf("Expected Addr to be localhost:6379, got %s", config.Addr)
	}

	if config.DB != 0 {
		t.Errorf("Expected DB to be 0, got %d", config.DB)
	}

	if config.PoolSize != 10 {
		t.Errorf("Expected PoolSize to be 10, got %d", config.PoolSize)
	}

	if config.MinIdleConns != 5 {
		t.Errorf("Expected MinIdleConns to be 5, got %d", config.MinIdleConns)
	}

	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", config.MaxRetries)
	}

	if config.DialTimeout != 5*time.Second {
		t.Errorf("Expected DialTimeout to be 5s, got %v", config.DialTimeout)
	}
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	cache := NewRedisCache(&CacheConfig{Addr: mr.Addr()})
	return cache, mr
}

func TestNewRedisCache_WithNilConfig(t *testing.T) {
	cache := NewRedisCache(nil)

	if cache == nil {
		t.Fatal("Expected cache to be created with default config")
	}

	if cache.client == nil {
		t.Error("Expected Redis client to be initialized")
	}
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	type testData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	original := testData{Name: "test", Value: 42}
	key := "test:key"

	if err := cache.Set(ctx, key, original, time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	var retrieved testData
	if err := cache.Get(ctx, key, &retrieved); err != nil {
		t.Fatalf("Failed to get from cache: %v", err)
	}

	if retrieved.Name != original.Name {
		t.Errorf("Expected Name %s, got %s", original.Name, retrieved.Name)
	}

	if retrieved.Value != original.Value {
		t.Errorf("Expected Value %d, got %d", original.Value, retrieved.Value)
	}
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()

	var result string
	err := cache.Get(context.Background(), "non-existent-key", &result)

	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_Set_InvalidData(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()

	ch := make(chan int)
	err := cache.Set(context.Background(), "test:key", ch, time.Minute)

	if err == nil {
		t.Error("Expected error when setting unmarshalable data")
	}
}

func TestRedisCache_Get_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()

	mr.Set("test:invalid", "invalid-json")

	var result map[string]interface{}
	err := cache.Get(context.Background(), "test:invalid", &result)

	if err == nil {
		t.Error("Expected error when getting invalid JSON")
	}
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	key := "test:delete"
	if err := cache.Set(ctx, key, "test-data", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("Failed to delete from cache: %v", err)
	}

	var retrieved string
	if err := cache.Get(ctx, key, &retrieved); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestRedisCache_DeletePattern(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	keys := []string{"stats:status:user1", "stats:daily:user1:2026-01-01", "stats:status:user2"}
	for _, key := range keys {
		if err := cache.Set(ctx, key, "data", time.Minute); err != nil {
			t.Fatalf("Failed to set cache key %s: %v", key, err)
		}
	}

	if err := cache.DeletePattern(ctx, "stats:*user1*"); err != nil {
		t.Fatalf("Failed to delete pattern: %v", err)
	}

	var result string
	for _, key := range []string{"stats:status:user1", "stats:daily:user1:2026-01-01"} {
		if err := cache.Get(ctx, key, &result); err != ErrCacheMiss {
			t.Errorf("Expected key %s to be deleted, but got: %v", key, err)
		}
	}

	if err := cache.Get(ctx, "stats:status:user2", &result); err != nil {
		t.Errorf("Expected key stats:status:user2 to still exist, got: %v", err)
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	if err := cache.Set(ctx, "test:hit", "data", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	var result string
	cache.Get(ctx, "test:hit", &result)
	cache.Get(ctx, "test:miss", &result)

	stats := cache.Stats()
	if stats["hits"] != int64(1) {
		t.Errorf("Expected 1 hit, got %v", stats["hits"])
	}
	if stats["misses"] != int64(1) {
		t.Errorf("Expected 1 miss, got %v", stats["misses"])
	}
}

func TestRedisCache_Health(t *testing.T) {
	cache, mr := setupTestRedis(t)

	if err := cache.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy cache, got %v", err)
	}

	mr.Close()
	if err := cache.Health(context.Background()); err == nil {
		t.Error("Expected health check failure after server close")
	}
}

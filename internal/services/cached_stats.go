package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskzen/backend/internal/cache"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const statsCacheTTL = 5 * time.Minute

// CachedStatsService fronts the raw aggregations with a short-lived redis
// cache. Every task write invalidates the owner's entries, so callers see
// the same results as an uncached recompute; the cache only absorbs
// repeated dashboard reads between writes. A cache outage degrades to the
// underlying queries.
type CachedStatsService struct {
	stats StatsService
	cache *cache.RedisCache
}

func NewCachedStatsService(stats StatsService, cacheInstance *cache.RedisCache) *CachedStatsService {
	return &CachedStatsService{stats: stats, cache: cacheInstance}
}

func (s *CachedStatsService) StatusDistribution(db *gorm.DB, ownerID uuid.UUID) ([]StatusCount, error) {
	key := fmt.Sprintf("stats:status:%s", ownerID)

	var cached []StatusCount
	if s.lookup(key, &cached) {
		return cached, nil
	}

	counts, err := s.stats.StatusDistribution(db, ownerID)
	if err != nil {
		return nil, err
	}

	s.store(key, counts)
	return counts, nil
}

func (s *CachedStatsService) CategoryDistribution(db *gorm.DB, ownerID uuid.UUID) ([]CategoryCount, error) {
	key := fmt.Sprintf("stats:category:%s", ownerID)

	var cached []CategoryCount
	if s.lookup(key, &cached) {
		return cached, nil
	}

	counts, err := s.stats.CategoryDistribution(db, ownerID)
	if err != nil {
		return nil, err
	}

	s.store(key, counts)
	return counts, nil
}

func (s *CachedStatsService) DailyCompletion(db *gorm.DB, ownerID uuid.UUID, now time.Time) ([]DailyCompletion, error) {
	// The day boundary is part of the key so a cached series never leaks
	// across midnight.
	key := fmt.Sprintf("stats:daily:%s:%s", ownerID, now.Format("2006-01-02"))

	var cached []DailyCompletion
	if s.lookup(key, &cached) {
		return cached, nil
	}

	series, err := s.stats.DailyCompletion(db, ownerID, now)
	if err != nil {
		return nil, err
	}

	s.store(key, series)
	return series, nil
}

// InvalidateUser drops every cached view for one owner. Task handlers call
// it after each successful write.
func (s *CachedStatsService) InvalidateUser(ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("stats:*%s*", ownerID)); err != nil {
		log.Printf("Failed to invalidate stats cache for user %s: %v", ownerID, err)
	}
}

func (s *CachedStatsService) lookup(key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := s.cache.Get(ctx, key, dest)
	if err != nil {
		if err != cache.ErrCacheMiss {
			log.Printf("Stats cache read failed for %s: %v", key, err)
		}
		return false
	}
	return true
}

func (s *CachedStatsService) store(key string, value interface{}) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.cache.Set(ctx, key, value, statsCacheTTL); err != nil {
		log.Printf("Stats cache write failed for %s: %v", key, err)
	}
}

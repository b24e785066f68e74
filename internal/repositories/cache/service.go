package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/models"
	cachekeys "coursepay/internal/utils/cache"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type CacheService struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCacheService(client redis.UniversalClient, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Balance caching. Cached balances are approximate reads only; financial
// operations always recompute under the wallet lock.
func (s *CacheService) GetBalance(ctx context.Context, studentID uint) (decimal.Decimal, bool, error) {
	var balance decimal.Decimal
	found, err := s.Get(ctx, cachekeys.GenerateKey(cachekeys.EntityBalance, cachekeys.KeyStudent, studentID), &balance)
	if err != nil || !found {
		return decimal.Zero, false, err
	}
	return balance, true, nil
}

func (s *CacheService) SetBalance(ctx context.Context, studentID uint, balance decimal.Decimal, ttl time.Duration) error {
	return s.SetWithTTL(ctx, cachekeys.GenerateKey(cachekeys.EntityBalance, cachekeys.KeyStudent, studentID), balance, ttl)
}

func (s *CacheService) InvalidateBalance(ctx context.Context, studentID uint) error {
	return s.Delete(ctx, cachekeys.GenerateKey(cachekeys.EntityBalance, cachekeys.KeyStudent, studentID))
}

// Course stats caching
func (s *CacheService) GetCourseStats(ctx context.Context, courseID uint) (*models.CourseStats, bool, error) {
	var stats models.CourseStats
	found, err := s.Get(ctx, cachekeys.GenerateKey(cachekeys.EntityCourseStats, cachekeys.KeyCourse, courseID), &stats)
	if err != nil || !found {
		return nil, false, err
	}
	return &stats, true, nil
}

func (s *CacheService) SetCourseStats(ctx context.Context, stats *models.CourseStats) error {
	if stats == nil {
		return errors.New("cannot cache nil course stats")
	}
	return s.Set(ctx, cachekeys.GenerateKey(cachekeys.EntityCourseStats, cachekeys.KeyCourse, stats.CourseID), stats)
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}

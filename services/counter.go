package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/threadbbs/models"
)

// PostCounterName is the counter that mints post sequence numbers.
const PostCounterName = "posts"

// SequenceCounter hands out strictly increasing numbers per name.
// Next must be atomic: concurrent callers never receive the same value.
type SequenceCounter interface {
	Next(ctx context.Context, name string) (int64, error)
}

// DBCounter keeps counters in the counters table.
type DBCounter struct {
	db *gorm.DB
}

// NewDBCounter creates a DBCounter.
func NewDBCounter(db *gorm.DB) *DBCounter {
	return &DBCounter{db: db}
}

// Next increments and reads the counter inside one transaction. The upsert
// takes the row lock, so the read observes this caller's increment only.
func (c *DBCounter) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1")}),
		}).Create(&models.Counter{Name: name, Count: 1}).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Counter{}).
			Where("name = ?", name).
			Pluck("count", &value).Error
	})
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return value, nil
}

// Current returns the counter value without incrementing it; zero if absent.
func (c *DBCounter) Current(ctx context.Context, name string) (int64, error) {
	var values []int64
	if err := c.db.WithContext(ctx).Model(&models.Counter{}).Where("name = ?", name).Pluck("count", &values).Error; err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0], nil
}

// RedisCounter uses INCR. A missing key is first seeded (SETNX) from seed so
// a flushed Redis never re-issues numbers already handed out.
type RedisCounter struct {
	rc   *redis.Client
	seed func(ctx context.Context, name string) (int64, error)
}

// NewRedisCounter creates a RedisCounter. seed may be nil to start from zero.
func NewRedisCounter(rc *redis.Client, seed func(ctx context.Context, name string) (int64, error)) *RedisCounter {
	return &RedisCounter{rc: rc, seed: seed}
}

func counterKey(name string) string {
	return "counter:" + name
}

func (c *RedisCounter) Next(ctx context.Context, name string) (int64, error) {
	key := counterKey(name)
	if c.seed != nil {
		n, err := c.rc.Exists(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("next %s sequence: %w", name, err)
		}
		if n == 0 {
			start, err := c.seed(ctx, name)
			if err != nil {
				return 0, fmt.Errorf("seed %s sequence: %w", name, err)
			}
			if err := c.rc.SetNX(ctx, key, start, time.Duration(0)).Err(); err != nil {
				return 0, fmt.Errorf("seed %s sequence: %w", name, err)
			}
		}
	}
	value, err := c.rc.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return value, nil
}

// MaxPostNumber seeds a post counter from the highest number already stored.
func MaxPostNumber(db *gorm.DB) func(ctx context.Context, name string) (int64, error) {
	return func(ctx context.Context, _ string) (int64, error) {
		var max int64
		err := db.WithContext(ctx).Model(&models.Post{}).Select("COALESCE(MAX(num_id), 0)").Scan(&max).Error
		return max, err
	}
}

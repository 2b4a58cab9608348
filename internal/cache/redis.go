// Package cache реализует кэш поверх Redis с JSON-сериализацией значений.
// Используется для горячих карточек курсов, ключи инвалидируются
// при любой записи.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edlatam/lms-platform/internal/config"
)

// Cache хранит JSON-снимки сущностей в Redis. Промах кэша не ошибка,
// Get сообщает о нём флагом found.
type Cache struct {
	rdb *redis.Client
}

// InitServer создаёт клиента по настройкам и проверяет соединение
// командой PING.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{rdb: rdb}, nil
}

// Get читает значение по ключу и раскладывает его в result.
// Возвращает false без ошибки, если ключа нет.
func (c *Cache) Get(key string, result any) (bool, error) {
	const op = "cache.Get"

	raw, err := c.rdb.Get(context.Background(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return false, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return true, nil
}

// Set сохраняет JSON-снимок значения с временем жизни ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	const op = "cache.Set"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := c.rdb.Set(context.Background(), key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ. Отсутствующий ключ не считается ошибкой.
func (c *Cache) Invalidate(key string) error {
	const op = "cache.Invalidate"

	if err := c.rdb.Del(context.Background(), key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

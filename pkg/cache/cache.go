/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache provides a redis-backed JSON lookup cache for data that
// does not change after process start, per §5 of spec.md; a shared
// client must be safe for concurrent use across requests. Its one user is
// pkg/reasoning's CachingKnowledgeGraph, which caches KG trigger rules
// per disaster type; hard rules, evaluation weights and capability
// mappings are not cached here.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
)

// Cache is a narrow get/set-with-TTL interface so callers can swap the
// redis-backed implementation for an in-memory fake in tests.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisCache implements Cache on top of a shared *redis.Client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache from connection settings.
func NewRedisCache(addr string, db int) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// NewRedisCacheFromClient wraps an already-constructed client (used by tests with miniredis).
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, sharederrors.NetworkError("cache get", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, sharederrors.ParseError(key, "JSON", err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return sharederrors.FailedToWithDetails("marshal cache value", "cache", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return sharederrors.NetworkError("cache set", key, err)
	}
	return nil
}

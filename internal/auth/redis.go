package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "session:"

// RedisSessions stores sessions as JSON values with a TTL.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (r *RedisSessions) Save(ctx context.Context, s Session, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("auth: get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("auth: decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Mutate(ctx context.Context, id string, fn func(*Session)) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(&s)
	s.ID = id
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// KeepTTL preserves the session's remaining lifetime.
	if err := r.rdb.Set(ctx, sessionKey(id), raw, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("auth: update session: %w", err)
	}
	return nil
}

package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/authz/server/internal/model"
)

const maxWatchRetries = 4

// redisToken is the stored form of a token under its user key.
type redisToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Purpose   string    `json:"purpose"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisTokenRepo keeps one key per user holding the live token plus a
// secondary key per (purpose, secret) pointing back to the user. Both expire
// with the token.
type RedisTokenRepo struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisTokenRepo(client redis.UniversalClient, prefix string) *RedisTokenRepo {
	if prefix == "" {
		prefix = "authz:token"
	}
	return &RedisTokenRepo{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisTokenRepo) userKey(userID uuid.UUID) string {
	return s.prefix + ":user:" + userID.String()
}

func (s *RedisTokenRepo) secretKey(purpose model.Purpose, secret string) string {
	return s.prefix + ":secret:" + string(purpose) + ":" + secret
}

func (s *RedisTokenRepo) ttl(t model.Token) time.Duration {
	ttl := t.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl
}

func decodeRedisToken(data []byte) (model.Token, error) {
	var rt redisToken
	if err := json.Unmarshal(data, &rt); err != nil {
		return model.Token{}, fmt.Errorf("decode token: %w", err)
	}
	return model.Token{
		ID:        rt.ID,
		UserID:    rt.UserID,
		Purpose:   model.Purpose(rt.Purpose),
		Secret:    rt.Secret,
		CreatedAt: rt.CreatedAt,
		ExpiresAt: rt.ExpiresAt,
	}, nil
}

// getLocked reads the user's current token inside a WATCH. A missing key
// yields ok == false.
func getLocked(ctx context.Context, tx *redis.Tx, key string) (model.Token, bool, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Token{}, false, nil
	}
	if err != nil {
		return model.Token{}, false, err
	}
	t, err := decodeRedisToken(data)
	if err != nil {
		return model.Token{}, false, err
	}
	return t, true, nil
}

// watch runs fn under WATCH on key, retrying when another client won the race.
func (s *RedisTokenRepo) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := s.redis.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("token for key %s changed concurrently", key)
}

func (s *RedisTokenRepo) Replace(ctx context.Context, t model.Token) error {
	data, err := json.Marshal(redisToken{
		ID:        t.ID,
		UserID:    t.UserID,
		Purpose:   string(t.Purpose),
		Secret:    t.Secret,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	key := s.userKey(t.UserID)
	err = s.watch(ctx, key, func(tx *redis.Tx) error {
		prev, ok, err := getLocked(ctx, tx, key)
		if err != nil {
			return err
		}
		ttl := s.ttl(t)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if ok {
				pipe.Del(ctx, s.secretKey(prev.Purpose, prev.Secret))
			}
			pipe.Set(ctx, key, data, ttl)
			pipe.Set(ctx, s.secretKey(t.Purpose, t.Secret), t.UserID.String(), ttl)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

func (s *RedisTokenRepo) FindByUser(ctx context.Context, userID uuid.UUID, now time.Time) (model.Token, error) {
	data, err := s.redis.Get(ctx, s.userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Token{}, fmt.Errorf("no active token: %w", ErrNotFound)
	}
	if err != nil {
		return model.Token{}, fmt.Errorf("query token: %w", err)
	}
	t, err := decodeRedisToken(data)
	if err != nil {
		return model.Token{}, err
	}
	if !t.Valid(now) {
		return model.Token{}, fmt.Errorf("token expired: %w", ErrNotFound)
	}
	return t, nil
}

func (s *RedisTokenRepo) FindBySecret(ctx context.Context, purpose model.Purpose, secret string, now time.Time) (model.Token, error) {
	owner, err := s.redis.Get(ctx, s.secretKey(purpose, secret)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Token{}, fmt.Errorf("no active token: %w", ErrNotFound)
	}
	if err != nil {
		return model.Token{}, fmt.Errorf("query token: %w", err)
	}
	userID, err := uuid.Parse(owner)
	if err != nil {
		return model.Token{}, fmt.Errorf("decode token owner: %w", err)
	}

	t, err := s.FindByUser(ctx, userID, now)
	if err != nil {
		return model.Token{}, err
	}
	if t.Purpose != purpose || t.Secret != secret {
		return model.Token{}, fmt.Errorf("token replaced: %w", ErrNotFound)
	}
	return t, nil
}

func (s *RedisTokenRepo) Delete(ctx context.Context, t model.Token) error {
	key := s.userKey(t.UserID)
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		cur, ok, err := getLocked(ctx, tx, key)
		if err != nil {
			return err
		}
		if !ok || cur.ID != t.ID {
			return fmt.Errorf("token already consumed: %w", ErrNotFound)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, s.secretKey(cur.Purpose, cur.Secret))
			return nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

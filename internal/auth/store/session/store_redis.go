package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"libris/internal/auth/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis with a native TTL matching the session
// expiry, so stale rows evict themselves without a sweep.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// redisSession is the stored JSON form.
type redisSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(redisSession{
		ID:        session.ID.String(),
		UserID:    session.UserID.String(),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session expired at creation: %w", sentinel.ErrExpired)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+session.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	sessionID, err := id.ParseSessionID(stored.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", stored.ID, err)
	}
	userID, err := id.ParseUserID(stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse session user id %q: %w", stored.UserID, err)
	}
	return &models.Session{
		ID:        sessionID,
		Token:     token,
		UserID:    userID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	deleted, err := s.client.Del(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts sessions through key TTLs.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

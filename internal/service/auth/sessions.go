package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sessions is the server-side session registry. A token is only accepted
// while its session id is present here, so logout revokes immediately
// regardless of token expiry.
type Sessions interface {
	Create(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error
	Valid(ctx context.Context, sessionID uuid.UUID) (bool, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

const sessionKeyPrefix = "session:"

type redisSessions struct {
	client *redis.Client
}

func NewRedisSessions(client *redis.Client) Sessions {
	return &redisSessions{client: client}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func (s *redisSessions) Create(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(sessionID), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *redisSessions) Valid(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	err := s.client.Get(ctx, sessionKey(sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return true, nil
}

func (s *redisSessions) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/Raghu1611/freshmart-sub000/internal/session"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists the token -> identity mapping in Redis with a
// TTL equal to the inactivity budget. It doubles as the session
// tracker's IdentityStore: forced expiry clears the same record.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, token string, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(token), data, session.SessionTimeout).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (*domain.User, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("unmarshal session user: %w", err)
	}
	return &user, nil
}

// Touch pushes the TTL out to a full inactivity budget again; called on
// every authenticated request alongside the tracker's activity event.
func (s *SessionStore) Touch(ctx context.Context, token string) error {
	if err := s.client.Expire(ctx, sessionKey(token), session.SessionTimeout).Err(); err != nil {
		return fmt.Errorf("redis expire session failed: %w", err)
	}
	return nil
}

// Clear removes the persisted token/identity record. Satisfies
// session.IdentityStore.
func (s *SessionStore) Clear(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

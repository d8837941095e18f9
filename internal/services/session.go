package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore keeps opaque session tokens in Redis. A user holds at most one
// live session; signing in again replaces it.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, ttl: SessionDuration}
}

func newSessionToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// Create issues a token for acc, invalidating any previous session so the
// 7-day timer restarts from this login.
func (s *SessionStore) Create(ctx context.Context, acc models.Account) (models.Session, error) {
	if err := s.InvalidateUser(ctx, acc.ID); err != nil {
		return models.Session{}, err
	}

	token, err := newSessionToken()
	if err != nil {
		return models.Session{}, err
	}
	sess := models.Session{Token: token, UserID: acc.ID, Email: acc.Email, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, data, s.ttl)
	pipe.Set(ctx, UserSessionKeyPrefix+acc.ID, token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Validate returns the session for token, or nil when it is unknown or expired.
func (s *SessionStore) Validate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.Token = token
	return &sess, nil
}

// Refresh extends the session expiration by the full duration from now.
func (s *SessionStore) Refresh(ctx context.Context, sess models.Session) error {
	pipe := s.client.TxPipeline()
	pipe.Expire(ctx, SessionKeyPrefix+sess.Token, s.ttl)
	pipe.Expire(ctx, UserSessionKeyPrefix+sess.UserID, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate removes a session and its user mapping.
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := s.Validate(ctx, token)
	if err == nil && sess != nil {
		s.client.Del(ctx, UserSessionKeyPrefix+sess.UserID)
	}
	return s.client.Del(ctx, SessionKeyPrefix+token).Err()
}

// InvalidateUser removes the current session of userID, if any.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID string) error {
	userSessionKey := UserSessionKeyPrefix + userID
	token, err := s.client.Get(ctx, userSessionKey).Result()
	if err == nil && token != "" {
		s.client.Del(ctx, SessionKeyPrefix+token)
	}
	return s.client.Del(ctx, userSessionKey).Err()
}

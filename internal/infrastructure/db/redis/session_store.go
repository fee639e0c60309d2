package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edustream/session-system/internal/core/domain"
)

const (
	tokenKeyPrefix   = "session:token:"
	currentKeyPrefix = "session:current:"
)

// SessionStore mints and validates the opaque routing tokens carried by the
// session cookie. One token per (account, device) is current at a time:
// issuing a replacement deletes the superseded token immediately, before its
// TTL would have expired it.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Issue mints a token with the given TTL and installs it as the current one
// for the device, revoking any predecessor.
func (s *SessionStore) Issue(ctx context.Context, accountID, deviceID string, ttl time.Duration) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	currentKey := s.currentKey(accountID, deviceID)
	prev, err := s.client.GetSet(ctx, currentKey, token).Result()
	if err != nil && err != redis.Nil {
		return "", sessionStoreErr("install current token", err)
	}
	if err := s.client.Expire(ctx, currentKey, ttl).Err(); err != nil {
		return "", sessionStoreErr("expire current pointer", err)
	}

	value := accountID + "|" + deviceID
	if err := s.client.Set(ctx, tokenKeyPrefix+token, value, ttl).Err(); err != nil {
		return "", sessionStoreErr("store token", err)
	}

	if prev != "" && prev != token {
		if err := s.client.Del(ctx, tokenKeyPrefix+prev).Err(); err != nil {
			return "", sessionStoreErr("revoke superseded token", err)
		}
	}
	return token, nil
}

// Validate resolves a presented token to its account id.
func (s *SessionStore) Validate(ctx context.Context, token string) (string, error) {
	value, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", domain.ErrSessionNotFound
	}
	if err != nil {
		return "", sessionStoreErr("look up token", err)
	}

	accountID, _, ok := strings.Cut(value, "|")
	if !ok || accountID == "" {
		return "", domain.ErrSessionNotFound
	}
	return accountID, nil
}

// Revoke invalidates the token and, when it is still the device's current
// one, its pointer. Revoking an unknown token is a no-op.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	value, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return sessionStoreErr("look up token", err)
	}

	if err := s.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		return sessionStoreErr("delete token", err)
	}

	accountID, deviceID, ok := strings.Cut(value, "|")
	if !ok {
		return nil
	}
	currentKey := s.currentKey(accountID, deviceID)
	current, err := s.client.Get(ctx, currentKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return sessionStoreErr("look up current pointer", err)
	}
	if current == token {
		if err := s.client.Del(ctx, currentKey).Err(); err != nil {
			return sessionStoreErr("delete current pointer", err)
		}
	}
	return nil
}

func (s *SessionStore) currentKey(accountID, deviceID string) string {
	return fmt.Sprintf("%s%s:%s", currentKeyPrefix, accountID, deviceID)
}

// sessionStoreErr normalizes transport failures onto
// domain.ErrStoreUnavailable so callers can classify them as transient.
func sessionStoreErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}

// generateToken returns a 32-byte cryptographically random opaque token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

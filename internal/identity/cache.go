package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachingVerifier fronts another verifier with a short-lived Redis cache so a
// busy principal does not hit the identity provider on every request. Cache
// failures degrade to a direct verification; they never grant access.
type CachingVerifier struct {
	next   Verifier
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingVerifier wraps next with the given cache lifetime.
func NewCachingVerifier(next Verifier, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachingVerifier {
	return &CachingVerifier{next: next, client: client, ttl: ttl, logger: logger}
}

// Verify checks the cache before delegating. Only successful verifications
// are cached; failures always re-verify.
func (v *CachingVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrVerification
	}
	key := v.key(token)
	payload, err := v.client.Get(ctx, key).Bytes()
	if err == nil {
		var claims Claims
		if err := json.Unmarshal(payload, &claims); err == nil {
			return &claims, nil
		}
	} else if !errors.Is(err, redis.Nil) && v.logger != nil {
		v.logger.Warn("identity cache read", slog.Any("error", err))
	}

	claims, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(claims); err == nil {
		if err := v.client.Set(ctx, key, data, v.ttl).Err(); err != nil && v.logger != nil {
			v.logger.Warn("identity cache write", slog.Any("error", err))
		}
	}
	return claims, nil
}

func (v *CachingVerifier) key(token string) string {
	return "idp:claims:" + tokenDigest(token)
}

package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

// Verifier turns a bearer token into a verified claim set.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// HTTPVerifier calls the external identity provider's userinfo endpoint.
// Concurrent verifications of the same token are deduplicated.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
	validate *validator.Validate
	logger   *slog.Logger
	group    singleflight.Group
}

// NewHTTPVerifier builds a verifier for the given userinfo endpoint. The
// timeout bounds the provider call; on expiry verification fails closed.
func NewHTTPVerifier(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		validate: validator.New(),
		logger:   logger,
	}
}

// Verify exchanges the bearer token for a claim set. Every failure mode, from
// transport errors to malformed claims, collapses into ErrVerification.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrVerification
	}
	result, err, _ := v.group.Do(tokenDigest(token), func() (any, error) {
		return v.fetch(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Claims), nil
}

func (v *HTTPVerifier) fetch(ctx context.Context, token string) (*Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := v.client.Do(req)
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("identity provider call failed", slog.Any("error", err))
		}
		return nil, ErrVerification
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, ErrVerification
	}
	var claims Claims
	if err := json.NewDecoder(res.Body).Decode(&claims); err != nil {
		return nil, ErrVerification
	}
	if err := v.validate.Struct(&claims); err != nil {
		if v.logger != nil {
			v.logger.Warn("identity provider returned malformed claims", slog.Any("error", err))
		}
		return nil, ErrVerification
	}
	return &claims, nil
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

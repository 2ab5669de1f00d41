package auth

import (
	"context"
	"sync"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
)

// IdentityProvider answers who the engine is syncing for.
type IdentityProvider interface {
	// UserID returns the authenticated user's identifier, or
	// common.ErrTokenExpired / common.ErrInvalidToken when the current
	// credentials cannot be verified.
	UserID(ctx context.Context) (string, error)
	// Refresh obtains fresh credentials. Callers retry a failed operation
	// at most once after a successful refresh.
	Refresh(ctx context.Context) error
}

// RefreshFunc fetches a replacement token from the auth backend.
type RefreshFunc func(ctx context.Context) (string, error)

// JWTProvider is an IdentityProvider backed by a locally held JWT. The
// token is swapped atomically on refresh; concurrent sync workers may read
// it at any time.
type JWTProvider struct {
	mu        sync.RWMutex
	token     string
	secretKey []byte
	refresh   RefreshFunc
}

// NewJWTProvider constructs a provider holding the given token. refresh may
// be nil when the caller has no way to renew credentials.
func NewJWTProvider(token string, secretKey []byte, refresh RefreshFunc) *JWTProvider {
	return &JWTProvider{token: token, secretKey: secretKey, refresh: refresh}
}

// UserID verifies the current token and returns its user identifier.
func (p *JWTProvider) UserID(ctx context.Context) (string, error) {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()
	if token == "" {
		return "", common.ErrUnauthorized
	}
	return GetUserIDFromToken(token, p.secretKey)
}

// Refresh replaces the current token via the configured RefreshFunc.
func (p *JWTProvider) Refresh(ctx context.Context) error {
	if p.refresh == nil {
		return common.ErrUnauthorized
	}
	token, err := p.refresh(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}

// Token returns the current raw token for transport-level auth headers.
func (p *JWTProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

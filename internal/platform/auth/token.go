package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

var (
	ErrTokenInvalid   = apperr.Unauthorized(apperr.CodeUnauthorized, "invalid or expired token")
	ErrTokenRevoked   = apperr.Unauthorized("TOKEN_REVOKED", "token has been revoked")
	ErrRefreshInvalid = apperr.Unauthorized(apperr.CodeUnauthorized, "invalid or expired refresh token")
)

type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

// Role returns the first role carried by the token.
func (c *Claims) Role() string {
	if len(c.Roles) == 0 {
		return ""
	}
	return c.Roles[0]
}

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshSession is what a refresh token resolves to.
type RefreshSession struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

type JWTConfig struct {
	Issuer     string
	SigningKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenIssuer signs HS256 access tokens and keeps opaque refresh tokens in a
// TokenStore.
type TokenIssuer struct {
	cfg   JWTConfig
	store TokenStore
	now   func() time.Time
}

func NewTokenIssuer(cfg JWTConfig, store TokenStore) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, store: store, now: time.Now}
}

// Issue creates a new access/refresh pair for the user.
func (t *TokenIssuer) Issue(ctx context.Context, userID, tenantID, role string) (*TokenPair, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
		},
		TenantID: tenantID,
		Roles:    []string{role},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	session := RefreshSession{UserID: userID, TenantID: tenantID}
	if err := t.store.SaveRefresh(ctx, refresh, session, t.cfg.RefreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.cfg.AccessTTL.Seconds()),
	}, nil
}

// Parse validates the signature, issuer and expiry of an access token and
// checks it against the revocation list.
func (t *TokenIssuer) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid.Wrap(err)
	}

	if claims.ID != "" {
		revoked, err := t.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Consume exchanges a refresh token for its session. A token can be used once.
func (t *TokenIssuer) Consume(ctx context.Context, refresh string) (*RefreshSession, error) {
	s, err := t.store.ConsumeRefresh(ctx, refresh)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	return s, nil
}

// Revoke blocks the access token until it would have expired, and drops the
// refresh token if one is given.
func (t *TokenIssuer) Revoke(ctx context.Context, claims *Claims, refresh string) error {
	if claims != nil && claims.ID != "" {
		until := t.now().Add(t.cfg.AccessTTL)
		if claims.ExpiresAt != nil {
			until = claims.ExpiresAt.Time
		}
		if err := t.store.RevokeJTI(ctx, claims.ID, claims.Subject, until); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if refresh != "" {
		if err := t.store.DeleteRefresh(ctx, refresh); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}
	return nil
}

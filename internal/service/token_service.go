// Package service holds the application logic between the HTTP handlers and
// the stores: token lifecycle, authentication, payment intents and webhook
// reconciliation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/invoice-api/internal/metrics"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/utils"
)

var (
	// ErrTokenInvalid covers malformed, forged, revoked and already rotated tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// RefreshStore persists refresh token digests.  repository.TokenRepo is the
// production implementation.
type RefreshStore interface {
	Store(ctx context.Context, t model.RefreshToken) error
	// Consume deletes the live record for hash and reports whether this
	// caller was the one that removed it.
	Consume(ctx context.Context, hash string, now time.Time) (bool, error)
	Delete(ctx context.Context, hash string) error
	PurgeExpired(ctx context.Context, userID uint64, now time.Time) (int64, error)
}

// TokenConfig carries the signing material.  The two secrets must differ so
// a refresh token can never pass as an access token and vice versa.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// WriteTimeout bounds rotation once it has started.  Zero means 5s.
	WriteTimeout time.Duration
}

// TokenPair is what Issue and Rotate hand back.  ExpiresIn is the access
// token lifetime in whole seconds.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64
	RefreshExpiresAt time.Time
}

// AccessClaims is the verified identity carried by an access token.
type AccessClaims struct {
	UserID uint64
	Email  string
	Role   model.Role
}

// TokenService issues, verifies, rotates and revokes session tokens.
type TokenService struct {
	cfg   TokenConfig
	store RefreshStore
	log   *zap.Logger
	now   func() time.Time
}

func NewTokenService(cfg TokenConfig, store RefreshStore, log *zap.Logger) *TokenService {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenService{cfg: cfg, store: store, log: log, now: time.Now}
}

// WithClock replaces the time source.  Tests use it to move past expiry.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// RefreshTTL is the cookie lifetime for refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// Issue mints a new access/refresh pair and persists the refresh digest.
// Expired records of the same user are purged on the way; a purge failure is
// logged and does not fail the issue.
func (s *TokenService) Issue(ctx context.Context, userID uint64, email string, role model.Role) (TokenPair, error) {
	now := s.now()
	access, accessClaims, err := utils.SignToken(s.cfg.AccessSecret, userID, email, string(role), s.cfg.AccessTTL, now)
	if err != nil {
		metrics.TokenOps.WithLabelValues("issue", "error").Inc()
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshClaims, err := utils.SignToken(s.cfg.RefreshSecret, userID, email, string(role), s.cfg.RefreshTTL, now)
	if err != nil {
		metrics.TokenOps.WithLabelValues("issue", "error").Inc()
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	rec, err := model.NewRefreshToken(userID, utils.HashToken(refresh), refreshClaims.ExpiresAt.Time, now)
	if err != nil {
		metrics.TokenOps.WithLabelValues("issue", "error").Inc()
		return TokenPair{}, err
	}
	if n, err := s.store.PurgeExpired(ctx, userID, now); err != nil {
		s.log.Warn("purge expired refresh tokens", zap.Uint64("user_id", userID), zap.Error(err))
	} else if n > 0 {
		s.log.Debug("purged expired refresh tokens", zap.Uint64("user_id", userID), zap.Int64("count", n))
	}
	if err := s.store.Store(ctx, rec); err != nil {
		metrics.TokenOps.WithLabelValues("issue", "error").Inc()
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	metrics.TokenOps.WithLabelValues("issue", "ok").Inc()
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        secondsUntil(accessClaims.ExpiresAt.Time, s.now()),
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// VerifyAccess checks an access token without touching the store.
func (s *TokenService) VerifyAccess(raw string) (AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, err := utils.VerifySignature(s.cfg.AccessSecret, raw)
	if err != nil {
		metrics.TokenOps.WithLabelValues("verify", "invalid").Inc()
		return AccessClaims{}, ErrTokenInvalid
	}
	if err := utils.ValidateClaims(claims, s.now()); err != nil {
		if errors.Is(err, utils.ErrExpired) {
			metrics.TokenOps.WithLabelValues("verify", "expired").Inc()
			return AccessClaims{}, ErrTokenExpired
		}
		metrics.TokenOps.WithLabelValues("verify", "invalid").Inc()
		return AccessClaims{}, ErrTokenInvalid
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		metrics.TokenOps.WithLabelValues("verify", "invalid").Inc()
		return AccessClaims{}, ErrTokenInvalid
	}
	id, _ := claims.UserID()
	return AccessClaims{UserID: id, Email: claims.Email, Role: role}, nil
}

// Rotate exchanges a refresh token for a new pair.  The stored record is
// consumed first with a single conditional delete, so of two concurrent
// calls with the same token exactly one gets past this point.  Only then is
// the token's signature checked and its claims read.
//
// Once started, rotation is detached from the caller's cancellation: a
// client that disconnects after the delete still gets a new record written.
func (s *TokenService) Rotate(ctx context.Context, raw string) (TokenPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		metrics.TokenOps.WithLabelValues("rotate", "invalid").Inc()
		return TokenPair{}, ErrTokenInvalid
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	ok, err := s.store.Consume(ctx, utils.HashToken(raw), s.now())
	if err != nil {
		metrics.TokenOps.WithLabelValues("rotate", "error").Inc()
		return TokenPair{}, fmt.Errorf("consume refresh token: %w", err)
	}
	if !ok {
		metrics.TokenOps.WithLabelValues("rotate", "invalid").Inc()
		return TokenPair{}, ErrTokenInvalid
	}

	claims, err := utils.VerifySignature(s.cfg.RefreshSecret, raw)
	if err != nil {
		metrics.TokenOps.WithLabelValues("rotate", "invalid").Inc()
		return TokenPair{}, ErrTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil || userID == 0 {
		metrics.TokenOps.WithLabelValues("rotate", "invalid").Inc()
		return TokenPair{}, ErrTokenInvalid
	}

	pair, err := s.Issue(ctx, userID, claims.Email, model.Role(claims.Role))
	if err != nil {
		metrics.TokenOps.WithLabelValues("rotate", "error").Inc()
		return TokenPair{}, err
	}
	metrics.TokenOps.WithLabelValues("rotate", "ok").Inc()
	return pair, nil
}

// Revoke deletes the record for raw if there is one.  Unknown, expired and
// empty tokens are not errors.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if err := s.store.Delete(ctx, utils.HashToken(raw)); err != nil {
		metrics.TokenOps.WithLabelValues("revoke", "error").Inc()
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	metrics.TokenOps.WithLabelValues("revoke", "ok").Inc()
	return nil
}

func secondsUntil(t, now time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

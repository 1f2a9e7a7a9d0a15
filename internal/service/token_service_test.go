package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/utils"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testTokenConfig = TokenConfig{
	AccessSecret:  []byte("access-secret-for-tests"),
	RefreshSecret: []byte("refresh-secret-for-tests"),
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    7 * 24 * time.Hour,
}

func newTokenService(t *testing.T) (*TokenService, *memTokens, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemTokens()
	svc := NewTokenService(testTokenConfig, store, nil).WithClock(clock.Now)
	return svc, store, clock
}

func TestIssue(t *testing.T) {
	svc, store, _ := newTokenService(t)

	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	assert.EqualValues(t, 900, pair.ExpiresIn)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, 1, store.count())

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, AccessClaims{UserID: 7, Email: "ada@example.com", Role: model.RoleUser}, claims)
}

func TestIssueTwiceInSameSecondGivesDistinctTokens(t *testing.T) {
	svc, store, _ := newTokenService(t)

	a, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)
	b, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
	assert.Equal(t, 2, store.count())
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	svc, _, _ := newTokenService(t)
	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccessExpired(t *testing.T) {
	svc, _, clock := newTokenService(t)
	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)
	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccessInvalid(t *testing.T) {
	svc, _, clock := newTokenService(t)
	forged, _, err := utils.SignToken([]byte("someone-else"), 7, "ada@example.com", "admin", time.Hour, clock.Now())
	require.NoError(t, err)

	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)
	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"

	for name, raw := range map[string]string{
		"empty":         "",
		"garbage":       "not.a.jwt",
		"wrong secret":  forged,
		"tampered":      tampered,
		"refresh token": pair.RefreshToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyAccess(raw)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}

	// A forged token stays invalid even once it would have expired.
	clock.Advance(2 * time.Hour)
	_, err = svc.VerifyAccess(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRotate(t *testing.T) {
	svc, store, _ := newTokenService(t)
	first, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	second, err := svc.Rotate(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, store.count(), "old record consumed, new one stored")

	claims, err := svc.VerifyAccess(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)

	_, err = svc.Rotate(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid, "reused refresh token must fail")
}

func TestRotateConcurrentReuseHasOneWinner(t *testing.T) {
	svc, store, _ := newTokenService(t)
	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	const callers = 16
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		failures atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := svc.Rotate(context.Background(), pair.RefreshToken); err == nil {
				wins.Add(1)
			} else if assert.ErrorIs(t, err, ErrTokenInvalid) {
				failures.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, callers-1, failures.Load())
	assert.Equal(t, 1, store.count())
}

func TestRotateExpiredRefreshToken(t *testing.T) {
	svc, _, clock := newTokenService(t)
	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	clock.Advance(testTokenConfig.RefreshTTL + time.Second)
	_, err = svc.Rotate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRotateForgedTokenInStoreFails(t *testing.T) {
	svc, store, clock := newTokenService(t)

	forged, claims, err := utils.SignToken([]byte("attacker-secret"), 1, "root@example.com", "admin", time.Hour, clock.Now())
	require.NoError(t, err)
	rec, err := model.NewRefreshToken(1, utils.HashToken(forged), claims.ExpiresAt.Time, clock.Now())
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), rec))

	_, err = svc.Rotate(context.Background(), forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, 0, store.count())
}

func TestRotateUsesCancelledContext(t *testing.T) {
	svc, store, _ := newTokenService(t)
	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, store, _ := newTokenService(t)
	pair, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))
	require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))
	require.NoError(t, svc.Revoke(context.Background(), ""))
	require.NoError(t, svc.Revoke(context.Background(), "never-issued"))
	assert.Equal(t, 0, store.count())

	_, err = svc.Rotate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssuePurgesExpiredRecords(t *testing.T) {
	svc, store, clock := newTokenService(t)
	_, err := svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)

	clock.Advance(testTokenConfig.RefreshTTL + time.Minute)
	_, err = svc.Issue(context.Background(), 7, "ada@example.com", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())
}

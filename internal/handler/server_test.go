package handler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/invoice-api/internal/middleware"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/payment"
	"github.com/iliyamo/invoice-api/internal/repository"
	"github.com/iliyamo/invoice-api/internal/service"
)

type fakeUsers struct {
	mu   sync.Mutex
	rows []model.User
}

func (f *fakeUsers) Create(_ context.Context, u model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	u.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, u)
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == strings.ToLower(email) {
			return r, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset >= len(f.rows) {
		return nil, len(f.rows), nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return append([]model.User(nil), f.rows[offset:end]...), len(f.rows), nil
}

func (f *fakeUsers) add(u model.User) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, u)
	return u
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]time.Time
}

func (f *fakeTokens) Store(_ context.Context, t model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[t.TokenHash] = t.ExpiresAt
	return nil
}

func (f *fakeTokens) Consume(_ context.Context, hash string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.rows[hash]
	if !ok || !now.Before(exp) {
		return false, nil
	}
	delete(f.rows, hash)
	return true, nil
}

func (f *fakeTokens) Delete(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, hash)
	return nil
}

func (f *fakeTokens) PurgeExpired(context.Context, uint64, time.Time) (int64, error) { return 0, nil }

func (f *fakeTokens) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeInvoices struct {
	mu       sync.Mutex
	invoices map[uint64]model.Invoice
	paid     map[string]bool
}

func (f *fakeInvoices) GetByID(_ context.Context, id uint64) (model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return model.Invoice{}, repository.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvoices) RecordSucceeded(_ context.Context, p *model.Payment) (model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[p.InvoiceID]
	if !ok {
		return model.Invoice{}, repository.ErrNotFound
	}
	if f.paid[p.ProviderPaymentID] {
		return model.Invoice{}, repository.ErrDuplicatePayment
	}
	f.paid[p.ProviderPaymentID] = true
	inv.Status = model.StatusPaid
	f.invoices[inv.ID] = inv
	return inv, nil
}

type stubGateway struct {
	payment.Gateway
	intent payment.Intent
}

func (s stubGateway) CreatePaymentIntent(context.Context, payment.IntentRequest) (payment.Intent, error) {
	return s.intent, nil
}

const testWebhookSecret = "whsec_handler_test"

type testServer struct {
	e        *echo.Echo
	users    *fakeUsers
	tokens   *fakeTokens
	invoices *fakeInvoices
	svc      *service.TokenService
}

// newTestServer wires the real services and handlers over in-memory stores.
func newTestServer(t *testing.T, production bool) *testServer {
	t.Helper()
	ts := &testServer{
		users:  &fakeUsers{},
		tokens: &fakeTokens{rows: map[string]time.Time{}},
		invoices: &fakeInvoices{
			invoices: map[uint64]model.Invoice{},
			paid:     map[string]bool{},
		},
	}
	ts.svc = service.NewTokenService(service.TokenConfig{
		AccessSecret:  []byte("handler-access"),
		RefreshSecret: []byte("handler-refresh"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, ts.tokens, nil)
	auth, err := service.NewAuthService(ts.users, ts.svc, bcrypt.MinCost, nil)
	require.NoError(t, err)

	stripeGW := payment.NewStripeGateway("sk_test_x", testWebhookSecret, nil)
	gw := stubGateway{Gateway: stripeGW, intent: payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop(), false)
	e.Validator = NewValidator()
	session := middleware.SessionAuth(ts.svc, ts.users)

	a := NewAuthHandler(auth, CookieConfig{Production: production})
	e.POST("/auth/register", a.Register)
	e.POST("/auth/login", a.Login)
	e.POST("/auth/refresh", a.Refresh)
	e.POST("/auth/logout", a.Logout)
	e.GET("/auth/me", a.Me, session)

	p := NewPaymentHandler(service.NewPaymentService(ts.invoices, gw, nil))
	e.POST("/invoices/:invoiceId/pay", p.Pay, session)

	u := NewUserHandler(service.NewUserService(ts.users))
	e.GET("/users", u.List, session, middleware.RequireRole(model.RoleAdmin))

	w := NewWebhookHandler(service.NewReconciler(gw, ts.invoices, nil, nil))
	e.POST("/webhooks/stripe", w.Stripe)

	ts.e = e
	return ts
}

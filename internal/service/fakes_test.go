package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/payment"
	"github.com/iliyamo/invoice-api/internal/queue"
	"github.com/iliyamo/invoice-api/internal/repository"
)

// memTokens is an in-memory RefreshStore.  Consume holds the mutex for the
// check and the delete, like the single DELETE statement does in MySQL.
type memTokens struct {
	mu     sync.Mutex
	rows   map[string]model.RefreshToken
	writes int
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]model.RefreshToken{}} }

func (m *memTokens) Store(_ context.Context, t model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.TokenHash] = t
	m.writes++
	return nil
}

func (m *memTokens) Consume(_ context.Context, hash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[hash]
	if !ok || !t.Live(now) {
		return false, nil
	}
	delete(m.rows, hash)
	m.writes++
	return true, nil
}

func (m *memTokens) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, hash)
	m.writes++
	return nil
}

func (m *memTokens) PurgeExpired(_ context.Context, userID uint64, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, t := range m.rows {
		if t.UserID == userID && !t.Live(now) {
			delete(m.rows, h)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memTokens) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = u
	return u.ID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// fakeGateway records intent requests and returns a canned webhook event.
type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.IntentRequest
	intent   payment.Intent
	err      error
	event    payment.Event
	parseErr error
}

func (g *fakeGateway) Provider() string { return model.ProviderStripe }

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req payment.IntentRequest) (payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.intent, g.err
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (payment.Event, error) {
	return g.event, g.parseErr
}

// memInvoices is both InvoiceReader and PaymentRecorder, enforcing the
// (provider, provider_payment_id) unique key in memory.
type memInvoices struct {
	mu       sync.Mutex
	invoices map[uint64]model.Invoice
	payments map[string]model.Payment
	err      error
}

func newMemInvoices(invs ...model.Invoice) *memInvoices {
	m := &memInvoices{invoices: map[uint64]model.Invoice{}, payments: map[string]model.Payment{}}
	for _, inv := range invs {
		m.invoices[inv.ID] = inv
	}
	return m
}

func (m *memInvoices) GetByID(_ context.Context, id uint64) (model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return model.Invoice{}, repository.ErrNotFound
	}
	return inv, nil
}

func (m *memInvoices) RecordSucceeded(_ context.Context, p *model.Payment) (model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Invoice{}, m.err
	}
	inv, ok := m.invoices[p.InvoiceID]
	if !ok {
		return model.Invoice{}, repository.ErrNotFound
	}
	key := p.Provider + "/" + p.ProviderPaymentID
	if _, dup := m.payments[key]; dup {
		return model.Invoice{}, repository.ErrDuplicatePayment
	}
	p.ID = uint64(len(m.payments) + 1)
	m.payments[key] = *p
	inv.Status = model.StatusPaid
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memInvoices) paymentList() []model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.InvoicePaidEvent
	err    error
}

func (r *recordingPublisher) PublishInvoicePaid(_ context.Context, ev queue.InvoicePaidEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/booking"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
	"github.com/iliyamo/billiard-reservation/internal/model"
	"github.com/iliyamo/billiard-reservation/internal/registration"
	"github.com/iliyamo/billiard-reservation/internal/repository"
)

// newContext builds an echo context for body, authenticated as id/role when
// id is non-zero.
func newContext(method, path, body string, id uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != 0 {
		c.Set(middleware.ContextAccountID, id)
		c.Set(middleware.ContextRole, role)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[uint64]model.Account
	password map[uint64]string
}

func newFakeAccounts(accts ...model.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[uint64]model.Account{}, password: map[uint64]string{}}
	for _, a := range accts {
		f.byID[a.AccountID] = a
	}
	return f
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, sql.ErrNoRows
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return model.Account{}, sql.ErrNoRows
	}
	return a, nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return sql.ErrNoRows
	}
	f.password[id] = hash
	return nil
}

type fakeTokens struct {
	mu         sync.Mutex
	active     map[string]uint64
	revokedAll []uint64
}

func newFakeTokens() *fakeTokens { return &fakeTokens{active: map[string]uint64{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, id uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[hash] = id
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[hash]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return id, nil
}

func (f *fakeTokens) ConsumeRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[hash]
	if !ok {
		return 0, sql.ErrNoRows
	}
	delete(f.active, hash)
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForAccount(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, owner := range f.active {
		if owner == id {
			delete(f.active, h)
		}
	}
	f.revokedAll = append(f.revokedAll, id)
	return nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

type fakeRegistrar struct {
	err    error
	ticket registration.Ticket
	acct   model.Account
}

func (f *fakeRegistrar) Start(context.Context, registration.Form) (registration.Ticket, error) {
	return f.ticket, f.err
}

func (f *fakeRegistrar) Resend(context.Context, string) (registration.Ticket, error) {
	return f.ticket, f.err
}

func (f *fakeRegistrar) Verify(context.Context, string, string) (model.Account, error) {
	return f.acct, f.err
}

type fakeBooker struct {
	err   error
	sub   booking.Submission
	items []model.Reservation
	got   booking.Request
}

func (f *fakeBooker) Submit(_ context.Context, id uint64, req booking.Request) (booking.Submission, error) {
	f.got = req
	if f.err != nil {
		return booking.Submission{}, f.err
	}
	s := f.sub
	s.AccountID = id
	return s, nil
}

func (f *fakeBooker) ListMine(context.Context, uint64) ([]model.Reservation, error) {
	return f.items, f.err
}

func (f *fakeBooker) GetMine(_ context.Context, uid, id uint64) (model.Reservation, error) {
	if f.err != nil {
		return model.Reservation{}, f.err
	}
	for _, r := range f.items {
		if r.ID != id {
			continue
		}
		if r.AccountID != uid {
			return model.Reservation{}, repository.ErrForbidden
		}
		return r, nil
	}
	return model.Reservation{}, sql.ErrNoRows
}

type fakeProfiles struct {
	customer    map[uint64]model.Customer
	staff       map[uint64]model.Staff
	profiles    map[uint64]model.Profile
	updateErr   error
	lastUpdated any
}

func (f *fakeProfiles) GetCustomer(_ context.Context, id uint64) (model.Customer, error) {
	c, ok := f.customer[id]
	if !ok {
		return model.Customer{}, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeProfiles) GetStaff(_ context.Context, _ string, id uint64) (model.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return model.Staff{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeProfiles) GetProfile(_ context.Context, id uint64) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeProfiles) UpdateCustomer(_ context.Context, c model.Customer) error {
	f.lastUpdated = c
	return f.updateErr
}

func (f *fakeProfiles) UpdateStaff(_ context.Context, _ string, s model.Staff) error {
	f.lastUpdated = s
	return f.updateErr
}

type fakeTables struct {
	items []model.BilliardTable
	err   error
}

func (f fakeTables) List(context.Context) ([]model.BilliardTable, error) { return f.items, f.err }

// fakeGateway is an in-memory reservation store for the check-in handler.
type fakeGateway struct {
	mu        sync.Mutex
	items     []model.Reservation
	fetchErr  error
	commitErr error
	patches   []model.CheckInPatch
}

func (g *fakeGateway) FindEligibleReservations(context.Context) ([]model.Reservation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	var out []model.Reservation
	for _, r := range g.items {
		if r.IsCheckInEligible() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *fakeGateway) CommitCheckIn(ctx context.Context, id uint64, p model.CheckInPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.commitErr != nil {
		return g.commitErr
	}
	for i := range g.items {
		if g.items[i].ID == id {
			g.items[i].Status = p.Status
			g.patches = append(g.patches, p)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

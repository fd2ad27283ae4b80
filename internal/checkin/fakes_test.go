package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/billiard-reservation/internal/checkin"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type commitCall struct {
	ID    uint64
	Patch model.CheckInPatch
}

type fakeGateway struct {
	mu           sync.Mutex
	reservations []model.Reservation
	commits      []commitCall
	fetches      int
	fetchErr     error
	commitErr    error
	// block, when set, holds CommitCheckIn until closed; entered is
	// signalled first.
	block   chan struct{}
	entered chan struct{}
}

func (g *fakeGateway) FindEligibleReservations(context.Context) ([]model.Reservation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	var out []model.Reservation
	for _, r := range g.reservations {
		if model.IsEligibleStatus(r.Status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *fakeGateway) CommitCheckIn(_ context.Context, id uint64, patch model.CheckInPatch) error {
	if g.block != nil {
		if g.entered != nil {
			g.entered <- struct{}{}
		}
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits = append(g.commits, commitCall{ID: id, Patch: patch})
	if g.commitErr != nil {
		return g.commitErr
	}
	for i := range g.reservations {
		if g.reservations[i].ID != id {
			continue
		}
		g.reservations[i].Status = patch.Status
		if patch.PaymentStatus != nil {
			g.reservations[i].PaymentStatus = *patch.PaymentStatus
		}
		if patch.ReferenceNo != nil {
			ref := *patch.ReferenceNo
			g.reservations[i].ReferenceNo = &ref
		}
		return nil
	}
	return errors.New("no rows updated")
}

func (g *fakeGateway) Commits() []commitCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]commitCall(nil), g.commits...)
}

func (g *fakeGateway) Fetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Reservation
	err  error
}

func (n *fakeNotifier) CheckInCompleted(_ context.Context, _ checkin.Operator, res model.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, res)
	return n.err
}

type fakeCamera struct {
	devices  []checkin.Device
	startErr error
	started  []string
	stops    int
}

func (c *fakeCamera) Devices() []checkin.Device { return c.devices }

func (c *fakeCamera) Start(id string) error {
	c.started = append(c.started, id)
	return c.startErr
}

func (c *fakeCamera) Stop() error {
	c.stops++
	return nil
}

func reservation(id uint64, no, status, method, ptype string) model.Reservation {
	return model.Reservation{
		ID:            id,
		ReservationNo: no,
		Status:        status,
		PaymentMethod: method,
		PaymentType:   ptype,
	}
}

func newTestSession(g *fakeGateway, clock *fakeClock, n checkin.Notifier) *checkin.Session {
	s := checkin.NewSession(checkin.Operator{AccountID: 7, Role: model.RoleFrontDesk}, checkin.SessionOptions{
		Gateway:  g,
		Clock:    clock,
		Notifier: n,
		Rand:     func(int) int { return 42 },
	})
	if err := s.Refresh(context.Background()); err != nil {
		panic(err)
	}
	return s
}

// startScanner opens a back camera on s as the browser would report it.
func startScanner(t *testing.T, s *checkin.Session) {
	t.Helper()
	cam := checkin.ReportedCamera{DeviceList: []checkin.Device{{ID: "cam-back", Label: "Back Camera"}}}
	if _, err := s.StartScanner(cam, ""); err != nil {
		t.Fatalf("StartScanner: %v", err)
	}
}

package checkin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

var logger = log.New("checkin")

// Operator identifies the staff member driving a session.
type Operator struct {
	AccountID uint64 `json:"account_id"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
}

// Notifier is told about every committed check-in.
type Notifier interface {
	CheckInCompleted(ctx context.Context, op Operator, res model.Reservation) error
}

// SessionOptions configures a Session.  Only Gateway is required.
type SessionOptions struct {
	Gateway  Gateway
	Clock    Clock
	Cooldown time.Duration
	Notifier Notifier
	// Rand draws the reference suffix; nil means math/rand/v2.
	Rand func(n int) int
}

// Session is one operator's check-in workspace: the eligible snapshot, the
// scanner with its guard, and the reconciler.
type Session struct {
	op       Operator
	gateway  Gateway
	clock    Clock
	notifier Notifier

	snapshot   *Snapshot
	scanner    *Scanner
	guard      *ScanGuard
	reconciler *Reconciler

	mu         sync.Mutex
	searchText string
	lastScan   *ScanEvent
	lastSeen   time.Time
}

// NewSession returns an idle session with an empty snapshot.  Call Refresh
// to load it.
func NewSession(op Operator, opts SessionOptions) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultScanCooldown
	}
	snap := &Snapshot{}
	return &Session{
		op:         op,
		gateway:    opts.Gateway,
		clock:      clock,
		notifier:   opts.Notifier,
		snapshot:   snap,
		scanner:    &Scanner{},
		guard:      NewScanGuard(clock, cooldown),
		reconciler: NewReconciler(opts.Gateway, snap, NewReferenceGenerator(clock, opts.Rand), clock),
		lastSeen:   clock.Now(),
	}
}

// Operator returns the session owner.
func (s *Session) Operator() Operator { return s.op }

// Refresh reloads the eligible snapshot.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.snapshot.Refresh(ctx, s.gateway, s.clock.Now()); err != nil {
		return errors.Join(ErrSnapshotLoad, err)
	}
	return nil
}

// Reservations returns the current snapshot.
func (s *Session) Reservations() []model.Reservation { return s.snapshot.Items() }

// StartScanner opens the camera described by cam.
func (s *Session) StartScanner(cam Camera, deviceID string) (Device, error) {
	dev, err := s.scanner.Start(cam, deviceID)
	if err != nil {
		logger.Warnf("operator %d: start scanner: %v", s.op.AccountID, err)
	}
	return dev, err
}

// StopScanner releases the camera.
func (s *Session) StopScanner() error { return s.scanner.Stop() }

// HandleScan feeds one decoded QR text through the guard, the parser and the
// resolver.  A match becomes the selected reservation.  Decodes are only
// accepted from a running scanner, and an accepted decode stops it.
func (s *Session) HandleScan(ctx context.Context, raw string) (model.Reservation, error) {
	if !s.scanner.Active() {
		return model.Reservation{}, ErrScannerInactive
	}
	if !s.guard.TryAcquire() {
		return model.Reservation{}, ErrScanIgnored
	}
	if err := s.scanner.Stop(); err != nil {
		logger.Warnf("operator %d: stop scanner after decode: %v", s.op.AccountID, err)
	}
	ev := ScanEvent{Raw: raw, ScannedAt: s.clock.Now()}
	id, err := ParsePayload(raw)
	if err != nil {
		s.guard.ReleaseNow()
		s.recordScan(ev)
		return model.Reservation{}, err
	}
	ev.Identifier = id
	s.recordScan(ev)
	defer s.guard.ReleaseAfterCooldown()
	return s.lookup(ctx, id)
}

// Search resolves a manually typed reservation number.  It does not go
// through the scan guard.
func (s *Session) Search(ctx context.Context, query string) (model.Reservation, error) {
	s.mu.Lock()
	s.searchText = query
	s.mu.Unlock()
	if strings.TrimSpace(query) == "" {
		return model.Reservation{}, ErrEmptyQuery
	}
	return s.lookup(ctx, query)
}

func (s *Session) lookup(_ context.Context, query string) (model.Reservation, error) {
	res, err := Resolve(query, s.snapshot.Items())
	if err != nil {
		return model.Reservation{}, err
	}
	if err := s.reconciler.Select(res); err != nil {
		return model.Reservation{}, err
	}
	s.mu.Lock()
	s.searchText = ""
	s.mu.Unlock()
	return res, nil
}

// BeginCheckIn opens the confirmation dialog.
func (s *Session) BeginCheckIn() (Confirmation, error) { return s.reconciler.BeginCheckIn() }

// Confirm commits the pending check-in and publishes the outcome.
func (s *Session) Confirm(ctx context.Context, gcashRef string) (CheckInResult, error) {
	res, err := s.reconciler.Confirm(ctx, gcashRef)
	if err != nil {
		return res, err
	}
	if s.notifier != nil {
		if err := s.notifier.CheckInCompleted(ctx, s.op, res.Reservation); err != nil {
			logger.Errorf("publish check-in %s: %v", res.Reservation.ReservationNo, err)
		}
	}
	logger.Infof("operator %d checked in %s", s.op.AccountID, res.Reservation.ReservationNo)
	return res, nil
}

// CancelConfirm closes the confirmation dialog.
func (s *Session) CancelConfirm() error { return s.reconciler.CancelConfirm() }

// Close drops the current selection.
func (s *Session) Close() error { return s.reconciler.Close() }

// View is the operator-visible state of a session.
type View struct {
	State              State              `json:"state"`
	Selected           *model.Reservation `json:"selected,omitempty"`
	GeneratedReference string             `json:"generated_reference,omitempty"`
	ReferenceRequired  bool               `json:"reference_required"`
	ScannerActive      bool               `json:"scanner_active"`
	Devices            []Device           `json:"devices"`
	SelectedDevice     string             `json:"selected_device,omitempty"`
	ScanBusy           bool               `json:"scan_busy"`
	SearchText         string             `json:"search_text"`
	Eligible           int                `json:"eligible"`
	SnapshotAt         time.Time          `json:"snapshot_at"`
	LastScan           *ScanEvent         `json:"last_scan,omitempty"`
}

// View returns a point-in-time copy of the session state.
func (s *Session) View() View {
	v := View{
		State:         s.reconciler.State(),
		ScannerActive: s.scanner.Active(),
		ScanBusy:      s.guard.Busy(),
		Eligible:      s.snapshot.Len(),
		SnapshotAt:    s.snapshot.FetchedAt(),
	}
	if res, ok := s.reconciler.Selected(); ok {
		v.Selected = &res
	}
	v.GeneratedReference, v.ReferenceRequired = s.reconciler.pending()
	v.Devices, v.SelectedDevice = s.scanner.Devices()
	s.mu.Lock()
	v.SearchText = s.searchText
	if s.lastScan != nil {
		ev := *s.lastScan
		v.LastScan = &ev
	}
	s.mu.Unlock()
	return v
}

func (s *Session) recordScan(ev ScanEvent) {
	s.mu.Lock()
	s.lastScan = &ev
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

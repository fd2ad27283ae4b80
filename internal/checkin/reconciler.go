package checkin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

// State is the reconciler's position in the check-in flow.
type State string

const (
	StateIdle           State = "idle"
	StateSelected       State = "selected"
	StateConfirmPending State = "confirm_pending"
	StateCommitted      State = "committed"
)

// Gateway is the remote reservation store as seen by the check-in flow.
type Gateway interface {
	// FindEligibleReservations returns reservations whose status is
	// pending or approved, newest first.
	FindEligibleReservations(ctx context.Context) ([]model.Reservation, error)
	// CommitCheckIn applies patch to the reservation with the given ID.
	CommitCheckIn(ctx context.Context, id uint64, patch model.CheckInPatch) error
}

// Confirmation is what the operator sees when the confirmation dialog
// opens.
type Confirmation struct {
	Reservation        model.Reservation `json:"reservation"`
	GeneratedReference string            `json:"generated_reference,omitempty"`
	ReferenceRequired  bool              `json:"reference_required"`
}

// CheckInResult describes a committed check-in.
type CheckInResult struct {
	Reservation       model.Reservation  `json:"reservation"`
	Patch             model.CheckInPatch `json:"patch"`
	SnapshotRefreshed bool               `json:"snapshot_refreshed"`
}

// Reconciler drives one selected reservation through confirmation and
// commit.
type Reconciler struct {
	gateway  Gateway
	snapshot *Snapshot
	refs     *ReferenceGenerator
	clock    Clock

	mu        sync.Mutex
	state     State
	selected  *model.Reservation
	generated string
	gcashRef  string
	inFlight  bool
}

// NewReconciler returns an idle reconciler.
func NewReconciler(gw Gateway, snap *Snapshot, refs *ReferenceGenerator, clock Clock) *Reconciler {
	if clock == nil {
		clock = SystemClock{}
	}
	if refs == nil {
		refs = NewReferenceGenerator(clock, nil)
	}
	if snap == nil {
		snap = &Snapshot{}
	}
	return &Reconciler{gateway: gw, snapshot: snap, refs: refs, clock: clock, state: StateIdle}
}

// State returns the current state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Selected returns the selected reservation, if any.
func (r *Reconciler) Selected() (model.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return model.Reservation{}, false
	}
	return *r.selected, true
}

// Select shows res to the operator.  Selecting replaces any earlier
// selection but is refused while the confirmation dialog is open.
func (r *Reconciler) Select(res model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateConfirmPending {
		return &TransitionError{From: r.state, Action: "select a reservation"}
	}
	r.selected = &res
	r.generated = ""
	r.gcashRef = ""
	r.state = StateSelected
	return nil
}

// BeginCheckIn opens the confirmation dialog for the selected reservation.
// Cash reservations paid in full get a generated reference; GCash ones
// require the operator to type one.
func (r *Reconciler) BeginCheckIn() (Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateSelected || r.selected == nil {
		return Confirmation{}, &TransitionError{From: r.state, Action: "begin check-in"}
	}
	res := *r.selected
	c := Confirmation{Reservation: res}
	switch {
	case isCashFull(res):
		r.generated = r.refs.Generate()
		c.GeneratedReference = r.generated
	case isGCash(res):
		c.ReferenceRequired = true
	}
	r.gcashRef = ""
	r.state = StateConfirmPending
	return c, nil
}

// Confirm commits the check-in.  For GCash reservations gcashRef must be
// non-blank; it is ignored otherwise.  A failed remote update leaves the
// state untouched so the operator can retry.
func (r *Reconciler) Confirm(ctx context.Context, gcashRef string) (CheckInResult, error) {
	r.mu.Lock()
	if r.state != StateConfirmPending || r.selected == nil {
		st := r.state
		r.mu.Unlock()
		return CheckInResult{}, &TransitionError{From: st, Action: "confirm check-in"}
	}
	if r.inFlight {
		r.mu.Unlock()
		return CheckInResult{}, ErrCheckInInFlight
	}
	res := *r.selected
	ref := strings.TrimSpace(gcashRef)
	if isGCash(res) {
		r.gcashRef = gcashRef
		if ref == "" {
			r.mu.Unlock()
			return CheckInResult{}, ErrReferenceRequired
		}
	}
	patch := buildPatch(res, r.generated, ref)
	r.inFlight = true
	r.mu.Unlock()

	err := r.gateway.CommitCheckIn(ctx, res.ID, patch)

	r.mu.Lock()
	r.inFlight = false
	if err != nil {
		r.mu.Unlock()
		logger.Errorf("commit check-in %s: %v", res.ReservationNo, err)
		return CheckInResult{}, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	// a cancel may have raced with the request; the write still happened
	r.selected = nil
	r.generated = ""
	r.gcashRef = ""
	r.state = StateCommitted
	r.mu.Unlock()

	applied := applyPatch(res, patch)
	result := CheckInResult{Reservation: applied, Patch: patch, SnapshotRefreshed: true}
	if err := r.snapshot.Refresh(ctx, r.gateway, r.clock.Now()); err != nil {
		logger.Warnf("refresh eligible reservations after check-in %s: %v", res.ReservationNo, err)
		result.SnapshotRefreshed = false
	}
	return result, nil
}

// CancelConfirm closes the confirmation dialog without writing anything.
// The generated reference and typed GCash text are discarded.
func (r *Reconciler) CancelConfirm() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateConfirmPending {
		return &TransitionError{From: r.state, Action: "cancel confirmation"}
	}
	r.generated = ""
	r.gcashRef = ""
	r.state = StateSelected
	return nil
}

// Close drops the selection without checking in.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateConfirmPending {
		return &TransitionError{From: r.state, Action: "close the reservation"}
	}
	r.selected = nil
	r.generated = ""
	r.gcashRef = ""
	r.state = StateIdle
	return nil
}

// pending returns the generated reference and whether a GCash reference is
// expected, for display.
func (r *Reconciler) pending() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateConfirmPending || r.selected == nil {
		return "", false
	}
	return r.generated, isGCash(*r.selected)
}

func buildPatch(res model.Reservation, generated, gcashRef string) model.CheckInPatch {
	patch := model.CheckInPatch{Status: model.StatusApproved}
	switch {
	case isCashFull(res):
		paid := true
		patch.PaymentStatus = &paid
		patch.ReferenceNo = &generated
	case isGCash(res):
		patch.ReferenceNo = &gcashRef
	}
	return patch
}

func applyPatch(res model.Reservation, patch model.CheckInPatch) model.Reservation {
	res.Status = patch.Status
	if patch.PaymentStatus != nil {
		res.PaymentStatus = *patch.PaymentStatus
	}
	if patch.ReferenceNo != nil {
		ref := *patch.ReferenceNo
		res.ReferenceNo = &ref
	}
	return res
}

// Payment method and type match exactly; booking stores the canonical
// spellings.
func isGCash(res model.Reservation) bool {
	return res.PaymentMethod == model.PaymentGCash
}

func isCashFull(res model.Reservation) bool {
	return res.PaymentMethod == model.PaymentCash && res.PaymentType == model.PaymentTypeFull
}

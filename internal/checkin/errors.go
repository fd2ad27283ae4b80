package checkin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the check-in flow.  Typed errors below wrap
// them so callers can match with errors.Is and still read the details with
// errors.As.
var (
	ErrInvalidQRCode     = errors.New("invalid QR code")
	ErrScanIgnored       = errors.New("scan ignored while a previous scan is processing")
	ErrScannerInactive   = errors.New("scanner is not running")
	ErrEmptyQuery        = errors.New("search query is empty")
	ErrNotFound          = errors.New("reservation not found")
	ErrInvalidStatus     = errors.New("reservation status does not allow check-in")
	ErrInvalidTransition = errors.New("invalid check-in transition")
	ErrReferenceRequired = errors.New("GCash reference number is required")
	ErrCheckInInFlight   = errors.New("check-in already in progress")
	ErrCommitFailed      = errors.New("check-in failed")
	ErrSnapshotLoad      = errors.New("unable to fetch reservations")

	ErrNoCamera          = errors.New("no camera detected")
	ErrCameraNotFound    = errors.New("camera not found")
	ErrCameraPermission  = errors.New("camera access denied")
	ErrCameraBusy        = errors.New("camera is already in use")
	ErrCameraUnavailable = errors.New("unable to access camera")
)

// InvalidQRError is returned when no reservation number can be extracted
// from a decoded QR payload.  Raw is the scanned text for diagnosis.
type InvalidQRError struct {
	Raw string
}

func (e *InvalidQRError) Error() string {
	return fmt.Sprintf("cannot find reservation number in QR code (scanned: %q)", e.Raw)
}

func (e *InvalidQRError) Unwrap() error { return ErrInvalidQRCode }

// NotFoundError echoes the identifier that matched nothing.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reservation %s does not exist or is not pending/approved", e.Query)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStatusError reports a matched reservation that can no longer be
// checked in.
type InvalidStatusError struct {
	ReservationNo string
	Status        string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("reservation %s is already: %s", e.ReservationNo, e.Status)
}

func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }

// TransitionError is returned when an operator action is not allowed in the
// current reconciler state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ClassifyCameraError maps the error name reported by the browser's media
// API to one of the camera sentinels.
func ClassifyCameraError(reported string) error {
	switch {
	case strings.Contains(reported, "NotFoundError"), strings.Contains(reported, "OverconstrainedError"):
		return ErrCameraNotFound
	case strings.Contains(reported, "NotAllowedError"), strings.Contains(reported, "SecurityError"):
		return ErrCameraPermission
	case strings.Contains(reported, "NotReadableError"), strings.Contains(reported, "AbortError"):
		return ErrCameraBusy
	}
	if strings.TrimSpace(reported) == "" {
		return ErrCameraUnavailable
	}
	return fmt.Errorf("%w: %s", ErrCameraUnavailable, reported)
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/checkin"
)

// CheckInHandler drives the front desk check-in screen.  Each staff account
// works in its own session held by Sessions; the browser decodes QR codes
// and reports camera events here.
type CheckInHandler struct {
	Sessions *checkin.Store
	Timeout  time.Duration
}

func NewCheckInHandler(sessions *checkin.Store, timeout time.Duration) *CheckInHandler {
	if sessions == nil {
		panic("nil session store passed to NewCheckInHandler")
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &CheckInHandler{Sessions: sessions, Timeout: timeout}
}

type scannerStartReq struct {
	Devices    []checkin.Device `json:"devices"`
	DeviceID   string           `json:"device_id"`
	StartError string           `json:"start_error"`
}

type scanReq struct {
	Text string `json:"text"`
}

type searchReq struct {
	Query string `json:"query"`
}

type confirmReq struct {
	ReferenceNo string `json:"reference_no"`
}

// session resolves the caller's check-in session, loading the eligible
// snapshot on first use.  On failure the response is already written.
func (h *CheckInHandler) session(ctx context.Context, c echo.Context) (*checkin.Session, error) {
	op, ok := operatorFrom(c)
	if !ok {
		return nil, errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	s, err := h.Sessions.Get(ctx, op)
	if err != nil {
		return nil, checkinError(c, err)
	}
	return s, nil
}

func (h *CheckInHandler) timeoutContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// commitContext outlives the client connection; only the timeout stops a
// check-in write once it was sent.
func (h *CheckInHandler) commitContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request().Context()), h.Timeout)
}

// State handles GET /v1/checkin/state.
func (h *CheckInHandler) State(c echo.Context) error {
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	return c.JSON(http.StatusOK, s.View())
}

// Reservations handles GET /v1/checkin/reservations.  The snapshot is
// re-fetched; on failure the previous one is kept and 502 returned.
func (h *CheckInHandler) Reservations(c echo.Context) error {
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": s.Reservations()})
}

// StartScanner handles POST /v1/checkin/scanner/start with what the browser
// decoder saw when it tried to open the camera.
func (h *CheckInHandler) StartScanner(c echo.Context) error {
	var req scannerStartReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	cam := checkin.ReportedCamera{DeviceList: req.Devices, StartError: req.StartError}
	dev, err := s.StartScanner(cam, req.DeviceID)
	if err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"device": dev, "state": s.View()})
}

// StopScanner handles POST /v1/checkin/scanner/stop.
func (h *CheckInHandler) StopScanner(c echo.Context) error {
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	if err := s.StopScanner(); err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// Scan handles POST /v1/checkin/scan with the decoded QR text.  Scans
// arriving during the cool-down are acknowledged with 202.
func (h *CheckInHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	res, err := s.HandleScan(ctx, req.Text)
	if err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// Search handles POST /v1/checkin/search.
func (h *CheckInHandler) Search(c echo.Context) error {
	var req searchReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	res, err := s.Search(ctx, req.Query)
	if err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// Begin handles POST /v1/checkin/begin and opens the confirmation step.
func (h *CheckInHandler) Begin(c echo.Context) error {
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	conf, err := s.BeginCheckIn()
	if err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, conf)
}

// Confirm handles POST /v1/checkin/confirm.  GCash reservations need
// reference_no.  A client that disconnects does not abort the write.
func (h *CheckInHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := h.commitContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	res, err := s.Confirm(ctx, req.ReferenceNo)
	if err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles POST /v1/checkin/cancel and returns to the selection.
func (h *CheckInHandler) Cancel(c echo.Context) error {
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	if err := s.CancelConfirm(); err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// ClearSelection handles DELETE /v1/checkin/selection.
func (h *CheckInHandler) ClearSelection(c echo.Context) error {
	ctx, cancel := h.timeoutContext(c)
	defer cancel()
	s, err := h.session(ctx, c)
	if s == nil {
		return err
	}
	if err := s.Close(); err != nil {
		return checkinError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// EndSession handles DELETE /v1/checkin/session, sent when the operator
// leaves the check-in screen.  The camera is released and the next request
// starts from a fresh snapshot.
func (h *CheckInHandler) EndSession(c echo.Context) error {
	op, ok := operatorFrom(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	h.Sessions.Drop(op.AccountID)
	return c.NoContent(http.StatusNoContent)
}

// checkinStatus maps check-in sentinels to a status and machine code.
var checkinStatus = []struct {
	err    error
	status int
	code   string
}{
	{checkin.ErrInvalidQRCode, http.StatusUnprocessableEntity, "invalid_qr"},
	{checkin.ErrEmptyQuery, http.StatusBadRequest, "empty_query"},
	{checkin.ErrReferenceRequired, http.StatusUnprocessableEntity, "reference_required"},
	{checkin.ErrNotFound, http.StatusNotFound, "not_found"},
	{checkin.ErrInvalidStatus, http.StatusConflict, "invalid_status"},
	{checkin.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{checkin.ErrCheckInInFlight, http.StatusConflict, "in_flight"},
	{checkin.ErrScannerInactive, http.StatusConflict, "scanner_inactive"},
	{checkin.ErrNoCamera, http.StatusUnprocessableEntity, "no_camera"},
	{checkin.ErrCameraNotFound, http.StatusUnprocessableEntity, "camera_not_found"},
	{checkin.ErrCameraPermission, http.StatusUnprocessableEntity, "camera_permission"},
	{checkin.ErrCameraBusy, http.StatusUnprocessableEntity, "camera_busy"},
	{checkin.ErrCameraUnavailable, http.StatusUnprocessableEntity, "camera_unavailable"},
}

func checkinError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkin.ErrScanIgnored):
		return c.JSON(http.StatusAccepted, echo.Map{"ignored": true})
	case errors.Is(err, checkin.ErrCommitFailed):
		c.Logger().Errorf("check-in commit: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": checkin.ErrCommitFailed.Error(), "code": "commit_failed"})
	case errors.Is(err, checkin.ErrSnapshotLoad):
		c.Logger().Errorf("check-in snapshot: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": checkin.ErrSnapshotLoad.Error(), "code": "snapshot_load"})
	}
	for _, m := range checkinStatus {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": err.Error(), "code": m.code})
		}
	}
	c.Logger().Errorf("check-in: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}

package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/iliyamo/billiard-reservation/internal/checkin"
	"github.com/iliyamo/billiard-reservation/internal/handler"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

const deskID = 9

func newCheckInHandler(gw *fakeGateway) *handler.CheckInHandler {
	store := checkin.NewStore(checkin.SessionOptions{
		Gateway: gw,
		Clock:   fixedClock{t: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)},
		Rand:    func(int) int { return 12 },
	}, time.Hour)
	return handler.NewCheckInHandler(store, time.Second)
}

func deskGateway() *fakeGateway {
	return &fakeGateway{items: []model.Reservation{
		{ID: 1, ReservationNo: "RSV-0001", Status: model.StatusPending, PaymentMethod: model.PaymentCash, PaymentType: model.PaymentTypeFull},
		{ID: 2, ReservationNo: "RSV-0002", Status: model.StatusApproved, PaymentMethod: model.PaymentGCash, PaymentType: model.PaymentTypeHalf},
		{ID: 3, ReservationNo: "RSV-0003", Status: model.StatusCompleted, PaymentMethod: model.PaymentCash, PaymentType: model.PaymentTypeFull},
	}}
}

// startScanner reports a working back camera for the desk operator.
func startScanner(t *testing.T, h *handler.CheckInHandler) {
	t.Helper()
	c, rec := newContext(http.MethodPost, "/v1/checkin/scanner/start",
		`{"devices":[{"id":"cam-2","label":"Back Camera"}]}`, deskID, model.RoleFrontDesk)
	if err := h.StartScanner(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
}

func TestCheckInCashFullFlow(t *testing.T) {
	gw := deskGateway()
	h := newCheckInHandler(gw)

	startScanner(t, h)
	c, rec := newContext(http.MethodPost, "/v1/checkin/scan", `{"text":"{\"reservationNo\":\"RSV-0001\"}"}`, deskID, model.RoleFrontDesk)
	if err := h.Scan(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["reservation"].(map[string]any)["reservation_no"]; got != "RSV-0001" {
		t.Fatalf("selected %v", got)
	}

	// the camera was released by the decode; a restart inside the
	// cool-down still drops the next decode
	startScanner(t, h)
	c, rec = newContext(http.MethodPost, "/v1/checkin/scan", `{"text":"RSV-0001"}`, deskID, model.RoleFrontDesk)
	if err := h.Scan(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusAccepted)
	if decode(t, rec)["ignored"] != true {
		t.Fatal("busy scan not flagged as ignored")
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/begin", "", deskID, model.RoleFrontDesk)
	if err := h.Begin(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["generated_reference"]; got != "202403091405070012" {
		t.Fatalf("generated_reference = %v", got)
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/confirm", `{}`, deskID, model.RoleFrontDesk)
	if err := h.Confirm(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if len(gw.patches) != 1 {
		t.Fatalf("commits = %d, want 1", len(gw.patches))
	}
	p := gw.patches[0]
	if p.Status != model.StatusApproved || p.PaymentStatus == nil || !*p.PaymentStatus ||
		p.ReferenceNo == nil || *p.ReferenceNo != "202403091405070012" {
		t.Fatalf("patch = %+v", p)
	}

	c, rec = newContext(http.MethodGet, "/v1/checkin/state", "", deskID, model.RoleFrontDesk)
	if err := h.State(c); err != nil {
		t.Fatal(err)
	}
	state := decode(t, rec)
	if state["state"] != string(checkin.StateCommitted) || state["selected"] != nil {
		t.Fatalf("state = %v", state)
	}
}

func TestCheckInGCashNeedsReference(t *testing.T) {
	gw := deskGateway()
	h := newCheckInHandler(gw)

	c, rec := newContext(http.MethodPost, "/v1/checkin/search", `{"query":"rsv-0002"}`, deskID, model.RoleManager)
	if err := h.Search(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)

	c, rec = newContext(http.MethodPost, "/v1/checkin/begin", "", deskID, model.RoleManager)
	if err := h.Begin(c); err != nil {
		t.Fatal(err)
	}
	if decode(t, rec)["reference_required"] != true {
		t.Fatal("GCash confirmation does not ask for a reference")
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/confirm", `{"reference_no":"  "}`, deskID, model.RoleManager)
	if err := h.Confirm(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if decode(t, rec)["code"] != "reference_required" {
		t.Fatal("wrong code for missing reference")
	}
	if len(gw.patches) != 0 {
		t.Fatal("commit attempted without reference")
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/confirm", `{"reference_no":" 1234567890 "}`, deskID, model.RoleManager)
	if err := h.Confirm(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if ref := gw.patches[0].ReferenceNo; ref == nil || *ref != "1234567890" {
		t.Fatalf("reference = %v", ref)
	}
}

func TestCheckInErrorMapping(t *testing.T) {
	h := newCheckInHandler(deskGateway())

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "unknown number", body: `{"query":"RSV-9999"}`, status: http.StatusNotFound, code: "not_found"},
		{name: "completed reservation", body: `{"query":"RSV-0003"}`, status: http.StatusNotFound, code: "not_found"},
		{name: "blank search", body: `{"query":"  "}`, status: http.StatusBadRequest, code: "empty_query"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/v1/checkin/search", tc.body, deskID, model.RoleFrontDesk)
			if err := h.Search(c); err != nil {
				t.Fatal(err)
			}
			expectStatus(t, rec, tc.status)
			if got := decode(t, rec)["code"]; got != tc.code {
				t.Fatalf("code = %v, want %s", got, tc.code)
			}
		})
	}

	c, rec := newContext(http.MethodPost, "/v1/checkin/scan", `{"text":"RSV-0001"}`, deskID, model.RoleFrontDesk)
	if err := h.Scan(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusConflict)
	if got := decode(t, rec)["code"]; got != "scanner_inactive" {
		t.Fatalf("code = %v", got)
	}

	startScanner(t, h)
	c, rec = newContext(http.MethodPost, "/v1/checkin/scan", `{"text":"{\"foo\":1}"}`, deskID, model.RoleFrontDesk)
	if err := h.Scan(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	c, rec = newContext(http.MethodPost, "/v1/checkin/confirm", `{}`, deskID, model.RoleFrontDesk)
	if err := h.Confirm(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusConflict)
	if got := decode(t, rec)["code"]; got != "invalid_transition" {
		t.Fatalf("code = %v", got)
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/scanner/start", `{"devices":[]}`, deskID, model.RoleFrontDesk)
	if err := h.StartScanner(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if got := decode(t, rec)["code"]; got != "no_camera" {
		t.Fatalf("code = %v", got)
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/scanner/start",
		`{"devices":[{"id":"cam-1","label":"Front"}],"start_error":"NotAllowedError: Permission denied"}`, deskID, model.RoleFrontDesk)
	if err := h.StartScanner(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if got := decode(t, rec)["code"]; got != "camera_permission" {
		t.Fatalf("code = %v", got)
	}
}

func TestCheckInScannerStart(t *testing.T) {
	h := newCheckInHandler(deskGateway())
	c, rec := newContext(http.MethodPost, "/v1/checkin/scanner/start",
		`{"devices":[{"id":"cam-1","label":"FaceTime HD"},{"id":"cam-2","label":"Back Camera"}]}`, deskID, model.RoleFrontDesk)
	if err := h.StartScanner(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if body["device"].(map[string]any)["id"] != "cam-2" {
		t.Fatalf("device = %v", body["device"])
	}
	if body["state"].(map[string]any)["scanner_active"] != true {
		t.Fatal("scanner not active")
	}

	c, rec = newContext(http.MethodPost, "/v1/checkin/scanner/stop", "", deskID, model.RoleFrontDesk)
	if err := h.StopScanner(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if decode(t, rec)["scanner_active"] != false {
		t.Fatal("scanner still active")
	}
}

func TestCheckInCommitFailure(t *testing.T) {
	gw := deskGateway()
	h := newCheckInHandler(gw)

	c, _ := newContext(http.MethodPost, "/v1/checkin/search", `{"query":"RSV-0001"}`, deskID, model.RoleFrontDesk)
	if err := h.Search(c); err != nil {
		t.Fatal(err)
	}
	c, _ = newContext(http.MethodPost, "/v1/checkin/begin", "", deskID, model.RoleFrontDesk)
	if err := h.Begin(c); err != nil {
		t.Fatal(err)
	}

	gw.commitErr = errors.New("mysql: connection reset")
	c, rec := newContext(http.MethodPost, "/v1/checkin/confirm", `{}`, deskID, model.RoleFrontDesk)
	if err := h.Confirm(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusBadGateway)
	body := decode(t, rec)
	if body["error"] != "check-in failed" || body["code"] != "commit_failed" {
		t.Fatalf("body = %v", body)
	}

	c, rec = newContext(http.MethodGet, "/v1/checkin/state", "", deskID, model.RoleFrontDesk)
	if err := h.State(c); err != nil {
		t.Fatal(err)
	}
	if got := decode(t, rec)["state"]; got != string(checkin.StateConfirmPending) {
		t.Fatalf("state after failed commit = %v", got)
	}
}

func TestCheckInSnapshotUnavailable(t *testing.T) {
	gw := deskGateway()
	gw.fetchErr = errors.New("mysql: too many connections")
	h := newCheckInHandler(gw)

	c, rec := newContext(http.MethodGet, "/v1/checkin/state", "", deskID, model.RoleFrontDesk)
	if err := h.State(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusBadGateway)
	if got := decode(t, rec)["code"]; got != "snapshot_load" {
		t.Fatalf("code = %v", got)
	}

	gw.fetchErr = nil
	c, rec = newContext(http.MethodGet, "/v1/checkin/reservations", "", deskID, model.RoleFrontDesk)
	if err := h.Reservations(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if items := decode(t, rec)["items"].([]any); len(items) != 2 {
		t.Fatalf("eligible items = %d, want 2", len(items))
	}
}

func TestCheckInEndSession(t *testing.T) {
	gw := deskGateway()
	h := newCheckInHandler(gw)

	c, _ := newContext(http.MethodPost, "/v1/checkin/search", `{"query":"RSV-0001"}`, deskID, model.RoleFrontDesk)
	if err := h.Search(c); err != nil {
		t.Fatal(err)
	}
	c, rec := newContext(http.MethodDelete, "/v1/checkin/session", "", deskID, model.RoleFrontDesk)
	if err := h.EndSession(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusNoContent)
	if h.Sessions.Len() != 0 {
		t.Fatalf("sessions = %d after end", h.Sessions.Len())
	}

	c, rec = newContext(http.MethodGet, "/v1/checkin/state", "", deskID, model.RoleFrontDesk)
	if err := h.State(c); err != nil {
		t.Fatal(err)
	}
	if got := decode(t, rec)["state"]; got != string(checkin.StateIdle) {
		t.Fatalf("state after new session = %v", got)
	}
}

func TestCheckInConfirmSurvivesClientDisconnect(t *testing.T) {
	gw := deskGateway()
	h := newCheckInHandler(gw)

	c, _ := newContext(http.MethodPost, "/v1/checkin/search", `{"query":"RSV-0001"}`, deskID, model.RoleFrontDesk)
	if err := h.Search(c); err != nil {
		t.Fatal(err)
	}
	c, _ = newContext(http.MethodPost, "/v1/checkin/begin", "", deskID, model.RoleFrontDesk)
	if err := h.Begin(c); err != nil {
		t.Fatal(err)
	}

	c, rec := newContext(http.MethodPost, "/v1/checkin/confirm", `{}`, deskID, model.RoleFrontDesk)
	gone, cancel := context.WithCancel(c.Request().Context())
	cancel()
	c.SetRequest(c.Request().WithContext(gone))
	if err := h.Confirm(c); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, rec, http.StatusOK)
	if len(gw.patches) != 1 {
		t.Fatalf("commits = %d, want 1 after the client went away", len(gw.patches))
	}
}

package checkin_test

import (
	"errors"
	"testing"

	"github.com/iliyamo/billiard-reservation/internal/checkin"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

func TestResolvePrefersExactMatch(t *testing.T) {
	snap := []model.Reservation{
		reservation(1, "rsv-100", model.StatusPending, model.PaymentCash, model.PaymentTypeFull),
		reservation(2, "RSV-100", model.StatusPending, model.PaymentCash, model.PaymentTypeFull),
	}
	got, err := checkin.Resolve("RSV-100", snap)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != 2 {
		t.Fatalf("expected exact match id 2, got %d", got.ID)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	snap := []model.Reservation{reservation(1, "abc123", model.StatusPending, model.PaymentCash, model.PaymentTypeFull)}
	got, err := checkin.Resolve("ABC123", snap)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ReservationNo != "abc123" {
		t.Fatalf("unexpected match %q", got.ReservationNo)
	}
}

func TestResolveSubstring(t *testing.T) {
	snap := []model.Reservation{reservation(1, "XYZ999", model.StatusApproved, model.PaymentGCash, model.PaymentTypeHalf)}
	got, err := checkin.Resolve("XYZ", snap)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("unexpected match id %d", got.ID)
	}
}

func TestResolveCaseInsensitiveBeatsSubstring(t *testing.T) {
	snap := []model.Reservation{
		reservation(1, "R-42-EXTRA", model.StatusPending, model.PaymentCash, model.PaymentTypeFull),
		reservation(2, "r-42", model.StatusPending, model.PaymentCash, model.PaymentTypeFull),
	}
	got, err := checkin.Resolve(" R-42 ", snap)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != 2 {
		t.Fatalf("expected case-insensitive match id 2, got %d", got.ID)
	}
}

func TestResolveNeverReturnsIneligible(t *testing.T) {
	for _, status := range []string{model.StatusCompleted, model.StatusCancelled, "no_show"} {
		snap := []model.Reservation{reservation(9, "RSV-DONE-1", status, model.PaymentCash, model.PaymentTypeFull)}
		for _, q := range []string{"RSV-DONE-1", "rsv-done-1", "done"} {
			got, err := checkin.Resolve(q, snap)
			var se *checkin.InvalidStatusError
			if !errors.As(err, &se) {
				t.Fatalf("status %s query %q: expected InvalidStatusError, got %v", status, q, err)
			}
			if se.Status != status {
				t.Fatalf("expected status %q in error, got %q", status, se.Status)
			}
			if got.ID != 0 {
				t.Fatalf("ineligible reservation returned for %q", q)
			}
		}
	}
}

func TestResolveNotFoundEchoesQuery(t *testing.T) {
	_, err := checkin.Resolve("  nope ", []model.Reservation{reservation(1, "RSV-1", model.StatusPending, "", "")})
	var nf *checkin.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Query != "nope" {
		t.Fatalf("expected echoed query %q, got %q", "nope", nf.Query)
	}
	if !errors.Is(err, checkin.ErrNotFound) {
		t.Fatalf("NotFoundError should match ErrNotFound")
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	if _, err := checkin.Resolve("   ", nil); !errors.Is(err, checkin.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

package booking_test

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/billiard-reservation/internal/booking"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

type fakeTables map[uint64]model.BilliardTable

func (f fakeTables) GetByIDs(_ context.Context, ids []uint64) (map[uint64]model.BilliardTable, error) {
	out := map[uint64]model.BilliardTable{}
	for _, id := range ids {
		if t, ok := f[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

type fakeReservations struct {
	rows []*model.Reservation
	err  error
}

func (f *fakeReservations) CreateBatch(_ context.Context, rows []*model.Reservation) error {
	if f.err != nil {
		return f.err
	}
	for i, r := range rows {
		r.ID = uint64(len(f.rows) + i + 1)
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeReservations) ListByAccount(context.Context, uint64) ([]model.Reservation, error) {
	return nil, nil
}

func (f *fakeReservations) GetForAccount(_ context.Context, id, accountID uint64) (model.Reservation, error) {
	for _, r := range f.rows {
		if r.ID == id && r.AccountID == accountID {
			return *r, nil
		}
	}
	return model.Reservation{}, sql.ErrNoRows
}

type fakePublisher struct{ subs []booking.Submission }

func (p *fakePublisher) ReservationSubmitted(_ context.Context, s booking.Submission) error {
	p.subs = append(p.subs, s)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var catalogue = fakeTables{
	1: {TableID: 1, TableName: "Table 1", BilliardType: "Pool", Price: d("150")},
	2: {TableID: 2, TableName: "Table 2", BilliardType: "Snooker", Price: d("175")},
}

func items() []booking.Item {
	return []booking.Item{
		{TableID: 1, Date: "2025-07-01", Time: "14:00", TimeEnd: "16:00", Hours: 2, DurationID: 2},
		{TableID: 2, Date: "2025-07-01", Time: "14:00", TimeEnd: "15:00", Hours: 1, DurationID: 1},
	}
}

func newService() (*booking.Service, *fakeReservations, *fakePublisher) {
	res := &fakeReservations{}
	pub := &fakePublisher{}
	n := 0
	svc := booking.NewService(catalogue, res, pub).WithReservationNo(func() string {
		n++
		return fmt.Sprintf("RSV-%d", n)
	})
	return svc, res, pub
}

func TestPrice(t *testing.T) {
	q, err := booking.Price(items(), catalogue)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !q.Total.Equal(d("475")) || !q.Minimum.Equal(d("238")) {
		t.Fatalf("total %s minimum %s", q.Total, q.Minimum)
	}
	if _, err := booking.Price([]booking.Item{{TableID: 9, Hours: 1}}, catalogue); !errors.Is(err, booking.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestCheckAmount(t *testing.T) {
	q, _ := booking.Price(items(), catalogue)
	cases := []struct {
		ptype  string
		amount string
		ok     bool
	}{
		{model.PaymentTypeFull, "475", true},
		{model.PaymentTypeFull, "474", false},
		{model.PaymentTypeHalf, "238", true},
		{model.PaymentTypeHalf, "237.5", false},
		{model.PaymentTypePartial, "238", true},
		{model.PaymentTypePartial, "300", true},
		{model.PaymentTypePartial, "200", false},
		{model.PaymentTypePartial, "500", false},
		{model.PaymentTypeFull, "0", false},
	}
	for _, tc := range cases {
		err := booking.CheckAmount(q, tc.ptype, d(tc.amount))
		if (err == nil) != tc.ok {
			t.Fatalf("%s %s: ok=%v err=%v", tc.ptype, tc.amount, tc.ok, err)
		}
		if err != nil && !errors.Is(err, booking.ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	}
}

func TestSplit(t *testing.T) {
	q, _ := booking.Price(items(), catalogue)
	half := booking.Split(q, model.PaymentTypeHalf, d("238"))
	if !half[0].Equal(d("150")) || !half[1].Equal(d("88")) {
		t.Fatalf("half split %v", half)
	}
	partial := booking.Split(q, model.PaymentTypePartial, d("300"))
	// 300*300/475 = 189.47.. and 300*175/475 = 110.52..
	if !partial[0].Equal(d("190")) || !partial[1].Equal(d("111")) {
		t.Fatalf("partial split %v", partial)
	}
}

func proof(mime string, size int) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", size)))
}

func TestCheckProof(t *testing.T) {
	if err := booking.CheckProof(proof("image/png", 1024)); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}
	for name, p := range map[string]string{
		"empty":   "",
		"not url": "aGVsbG8=",
		"pdf":     proof("application/pdf", 10),
		"too big": proof("image/jpeg", booking.MaxProofBytes+1),
		"bad b64": "data:image/png;base64,***",
	} {
		if err := booking.CheckProof(p); !errors.Is(err, booking.ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", name, err)
		}
	}
}

func TestSubmitHalfPaymentGCash(t *testing.T) {
	svc, store, pub := newService()
	sub, err := svc.Submit(context.Background(), 11, booking.Request{
		Items:          items(),
		PaymentMethod:  "gcash",
		PaymentType:    "half",
		AmountPaid:     d("238"),
		ProofOfPayment: proof("image/png", 64),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(store.rows))
	}
	r := store.rows[1]
	if r.ReservationNo != "RSV-2" || r.Status != model.StatusPending || r.PaymentMethod != model.PaymentGCash ||
		r.PaymentType != model.PaymentTypeHalf || r.BilliardType != "Snooker" || r.AccountID != 11 {
		t.Fatalf("unexpected row %+v", r)
	}
	if !r.HalfAmount.Valid || !r.HalfAmount.Decimal.Equal(d("88")) || r.FullAmount.Valid || r.PartialAmount.Valid {
		t.Fatalf("unexpected amounts %+v", r)
	}
	if r.ProofOfPayment == nil {
		t.Fatal("GCash proof must be stored")
	}
	if !sub.Balance.Equal(d("237")) || len(pub.subs) != 1 {
		t.Fatalf("balance %s published %d", sub.Balance, len(pub.subs))
	}
	if sub.Reservations[0].ProofOfPayment != nil {
		t.Fatal("proof must not be echoed back")
	}
}

func TestSubmitRejects(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	base := booking.Request{Items: items(), PaymentMethod: "Cash", PaymentType: "full", AmountPaid: d("475")}

	noProof := base
	noProof.PaymentMethod = "GCash"
	if _, err := svc.Submit(ctx, 1, noProof); !errors.Is(err, booking.ErrInvalidRequest) {
		t.Fatalf("GCash without proof: %v", err)
	}
	badMethod := base
	badMethod.PaymentMethod = "Card"
	if _, err := svc.Submit(ctx, 1, badMethod); !errors.Is(err, booking.ErrInvalidRequest) {
		t.Fatalf("bad method: %v", err)
	}
	dup := base
	dup.Items = []booking.Item{items()[0], items()[0]}
	if _, err := svc.Submit(ctx, 1, dup); !errors.Is(err, booking.ErrInvalidRequest) {
		t.Fatalf("duplicate slot: %v", err)
	}
	empty := base
	empty.Items = nil
	if _, err := svc.Submit(ctx, 1, empty); !errors.Is(err, booking.ErrInvalidRequest) {
		t.Fatalf("no items: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatal("rejected submissions must not be stored")
	}

	if _, err := svc.Submit(ctx, 1, base); err != nil {
		t.Fatalf("cash full: %v", err)
	}
	if store.rows[0].ProofOfPayment != nil || !store.rows[0].FullAmount.Decimal.Equal(d("300")) {
		t.Fatalf("unexpected cash row %+v", store.rows[0])
	}
}

func TestNewReservationNo(t *testing.T) {
	a, b := booking.NewReservationNo(), booking.NewReservationNo()
	if a == b || !strings.HasPrefix(a, "RSV-") || len(a) != 14 || strings.ToUpper(a) != a {
		t.Fatalf("unexpected numbers %q %q", a, b)
	}
}

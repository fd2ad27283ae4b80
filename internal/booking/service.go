package booking

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

var logger = log.New("booking")

// Tables looks up the billiard table catalogue.
type Tables interface {
	GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.BilliardTable, error)
}

// Reservations stores submitted reservations.
type Reservations interface {
	CreateBatch(ctx context.Context, rows []*model.Reservation) error
	ListByAccount(ctx context.Context, accountID uint64) ([]model.Reservation, error)
	GetForAccount(ctx context.Context, id, accountID uint64) (model.Reservation, error)
}

// Publisher is told about every accepted submission.
type Publisher interface {
	ReservationSubmitted(ctx context.Context, s Submission) error
}

// Submission is the outcome of a successful payment submission.
type Submission struct {
	AccountID     uint64              `json:"account_id"`
	Reservations  []model.Reservation `json:"reservations"`
	PaymentMethod string              `json:"payment_method"`
	PaymentType   string              `json:"payment_type"`
	Total         decimal.Decimal     `json:"total_bill"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	Balance       decimal.Decimal     `json:"remaining_balance"`
	SubmittedAt   time.Time           `json:"submitted_at"`
}

// Service validates and stores payment submissions.
type Service struct {
	tables       Tables
	reservations Reservations
	publisher    Publisher
	newNo        func() string
	now          func() time.Time
}

// NewService returns a Service.  publisher may be nil.
func NewService(tables Tables, reservations Reservations, publisher Publisher) *Service {
	return &Service{
		tables:       tables,
		reservations: reservations,
		publisher:    publisher,
		newNo:        NewReservationNo,
		now:          time.Now,
	}
}

// WithReservationNo replaces the reservation number generator.
func (s *Service) WithReservationNo(fn func() string) *Service {
	s.newNo = fn
	return s
}

// Submit prices the request, checks the payment rules and writes one
// pending reservation per item in a single transaction.
func (s *Service) Submit(ctx context.Context, accountID uint64, req Request) (Submission, error) {
	if err := checkItems(req.Items); err != nil {
		return Submission{}, err
	}
	method, ok := NormalizeMethod(req.PaymentMethod)
	if !ok {
		return Submission{}, badRequest("Payment method must be GCash or Cash")
	}
	ptype, ok := NormalizeType(req.PaymentType)
	if !ok {
		return Submission{}, badRequest("Payment type must be full, half or partial")
	}
	if method == model.PaymentGCash {
		if err := CheckProof(req.ProofOfPayment); err != nil {
			return Submission{}, err
		}
	}

	ids := make([]uint64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.TableID)
	}
	tables, err := s.tables.GetByIDs(ctx, ids)
	if err != nil {
		return Submission{}, err
	}
	quote, err := Price(req.Items, tables)
	if err != nil {
		return Submission{}, err
	}
	if err := CheckAmount(quote, ptype, req.AmountPaid); err != nil {
		return Submission{}, err
	}

	var proof *string
	if method == model.PaymentGCash {
		p := req.ProofOfPayment
		proof = &p
	}
	amounts := Split(quote, ptype, req.AmountPaid)
	rows := make([]*model.Reservation, len(quote.Lines))
	for i, l := range quote.Lines {
		r := &model.Reservation{
			ReservationNo:   s.newNo(),
			AccountID:       accountID,
			TableID:         l.Table.TableID,
			ReservationDate: l.Item.Date,
			StartTime:       l.Item.Time,
			TimeEnd:         l.Item.TimeEnd,
			Duration:        l.Item.DurationID,
			BilliardType:    l.Table.BilliardType,
			PaymentMethod:   method,
			PaymentType:     ptype,
			TotalBill:       l.Bill,
			ProofOfPayment:  proof,
			Status:          model.StatusPending,
		}
		amt := decimal.NewNullDecimal(amounts[i])
		switch ptype {
		case model.PaymentTypeFull:
			r.FullAmount = amt
		case model.PaymentTypeHalf:
			r.HalfAmount = amt
		default:
			r.PartialAmount = amt
		}
		rows[i] = r
	}
	if err := s.reservations.CreateBatch(ctx, rows); err != nil {
		return Submission{}, err
	}

	sub := Submission{
		AccountID:     accountID,
		PaymentMethod: method,
		PaymentType:   ptype,
		Total:         quote.Total,
		AmountPaid:    req.AmountPaid,
		Balance:       quote.Total.Sub(req.AmountPaid),
		SubmittedAt:   s.now().UTC(),
	}
	for _, r := range rows {
		cp := *r
		cp.ProofOfPayment = nil
		sub.Reservations = append(sub.Reservations, cp)
	}
	if s.publisher != nil {
		if err := s.publisher.ReservationSubmitted(ctx, sub); err != nil {
			logger.Errorf("publish reservation.submitted for account %d: %v", accountID, err)
		}
	}
	return sub, nil
}

// ListMine returns the caller's reservations.
func (s *Service) ListMine(ctx context.Context, accountID uint64) ([]model.Reservation, error) {
	return s.reservations.ListByAccount(ctx, accountID)
}

// GetMine returns one of the caller's reservations, proof included.
func (s *Service) GetMine(ctx context.Context, accountID, id uint64) (model.Reservation, error) {
	return s.reservations.GetForAccount(ctx, id, accountID)
}

// IsClientError reports whether err should be shown to the customer as a
// validation failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrUnknownTable)
}

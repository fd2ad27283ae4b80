// Package booking turns a customer's table selection and payment details
// into pending reservations.
package booking

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

// MaxProofBytes caps the decoded size of an uploaded payment proof.
const MaxProofBytes = 5 * 1024 * 1024

var (
	ErrInvalidRequest = errors.New("invalid reservation request")
	ErrUnknownTable   = errors.New("billiard table not found")
)

// RequestError is a validation failure with a user-facing message.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

func badRequest(format string, args ...any) error {
	return &RequestError{Message: fmt.Sprintf(format, args...)}
}

// Item is one table booked for one slot.
type Item struct {
	TableID    uint64 `json:"table_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	TimeEnd    string `json:"time_end"`
	Hours      int    `json:"hours"`
	DurationID int    `json:"duration_id"`
}

// Request is the payment form submitted by a customer.
type Request struct {
	Items          []Item          `json:"items"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentType    string          `json:"payment_type"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	ProofOfPayment string          `json:"proof_of_payment"`
}

// Line is the bill for one item.
type Line struct {
	Item  Item                `json:"item"`
	Table model.BilliardTable `json:"table"`
	Bill  decimal.Decimal     `json:"bill"`
}

// Quote is the priced selection.
type Quote struct {
	Lines   []Line          `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Minimum decimal.Decimal `json:"minimum"`
}

var two = decimal.NewFromInt(2)

// Price bills every item at its table's hourly rate.  The minimum payment
// is half the total rounded up to a whole unit.
func Price(items []Item, tables map[uint64]model.BilliardTable) (Quote, error) {
	q := Quote{Total: decimal.Zero}
	for _, it := range items {
		t, ok := tables[it.TableID]
		if !ok {
			return Quote{}, fmt.Errorf("%w: %d", ErrUnknownTable, it.TableID)
		}
		bill := t.Price.Mul(decimal.NewFromInt(int64(it.Hours)))
		q.Lines = append(q.Lines, Line{Item: it, Table: t, Bill: bill})
		q.Total = q.Total.Add(bill)
	}
	q.Minimum = q.Total.Div(two).Ceil()
	return q, nil
}

// NormalizeMethod maps user input to GCash or Cash.
func NormalizeMethod(m string) (string, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(m), model.PaymentGCash):
		return model.PaymentGCash, true
	case strings.EqualFold(strings.TrimSpace(m), model.PaymentCash):
		return model.PaymentCash, true
	}
	return "", false
}

// NormalizeType accepts the short form codes (full, half, partial) as well
// as the stored labels.
func NormalizeType(t string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(t))
	switch s {
	case "full", strings.ToLower(model.PaymentTypeFull):
		return model.PaymentTypeFull, true
	case "half", strings.ToLower(model.PaymentTypeHalf):
		return model.PaymentTypeHalf, true
	case "partial", strings.ToLower(model.PaymentTypePartial):
		return model.PaymentTypePartial, true
	}
	return "", false
}

// CheckAmount applies the payment type rules to amount.
func CheckAmount(q Quote, paymentType string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return badRequest("Please enter a valid payment amount")
	}
	switch paymentType {
	case model.PaymentTypeFull:
		if !amount.Equal(q.Total) {
			return badRequest("Full payment amount must be exactly %s", q.Total.StringFixed(2))
		}
	case model.PaymentTypeHalf:
		if !amount.Equal(q.Minimum) {
			return badRequest("Half payment amount must be exactly %s", q.Minimum.StringFixed(2))
		}
	case model.PaymentTypePartial:
		if amount.LessThan(q.Minimum) {
			return badRequest("Partial payment must be at least %s (50%% of total)", q.Minimum.StringFixed(2))
		}
		if amount.GreaterThan(q.Total) {
			return badRequest("Partial payment cannot exceed %s", q.Total.StringFixed(2))
		}
	default:
		return badRequest("Unknown payment type")
	}
	return nil
}

// CheckProof validates a base64 data URL holding an image of at most
// MaxProofBytes.
func CheckProof(dataURL string) error {
	if strings.TrimSpace(dataURL) == "" {
		return badRequest("Please upload proof of payment for GCash")
	}
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return badRequest("Proof of payment must be a base64 data URL")
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !strings.HasPrefix(strings.ToLower(mime), "image/") {
		return badRequest("Please upload an image file")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxProofBytes+2 {
		return badRequest("File size must be less than 5MB")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return badRequest("Proof of payment is not valid base64")
	}
	if len(raw) > MaxProofBytes {
		return badRequest("File size must be less than 5MB")
	}
	return nil
}

// Split spreads the declared amount over the lines.  Full payments store
// each line's bill, half payments half of it rounded up, and partial
// payments the line's share of the amount rounded up.
func Split(q Quote, paymentType string, amount decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(q.Lines))
	for i, l := range q.Lines {
		switch paymentType {
		case model.PaymentTypeFull:
			out[i] = l.Bill
		case model.PaymentTypeHalf:
			out[i] = l.Bill.Div(two).Ceil()
		default:
			if q.Total.IsZero() {
				out[i] = decimal.Zero
				continue
			}
			out[i] = amount.Mul(l.Bill).Div(q.Total).Ceil()
		}
	}
	return out
}

// NewReservationNo returns a random business identifier such as
// RSV-3F9A0C1B7D.
func NewReservationNo() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RSV-" + strings.ToUpper(id[:10])
}

func checkItems(items []Item) error {
	if len(items) == 0 {
		return badRequest("Please select at least one table")
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.TableID == 0 {
			return badRequest("Table is required")
		}
		if it.Hours <= 0 {
			return badRequest("Duration must be at least one hour")
		}
		if _, err := time.Parse("2006-01-02", it.Date); err != nil {
			return badRequest("Invalid reservation date %q", it.Date)
		}
		if !validClock(it.Time) || (it.TimeEnd != "" && !validClock(it.TimeEnd)) {
			return badRequest("Invalid reservation time")
		}
		key := fmt.Sprintf("%d|%s|%s", it.TableID, it.Date, it.Time)
		if seen[key] {
			return badRequest("Table %d is selected twice for the same slot", it.TableID)
		}
		seen[key] = true
	}
	return nil
}

func validClock(s string) bool {
	if _, err := time.Parse("15:04", s); err == nil {
		return true
	}
	_, err := time.Parse("15:04:05", s)
	return err == nil
}

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reservation statuses.  Only pending and approved reservations can be
// checked in; completed and cancelled are terminal for the front desk.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment methods accepted at submission time.
const (
	PaymentGCash = "GCash"
	PaymentCash  = "Cash"
)

// Payment types as stored in reservation.payment_type.
const (
	PaymentTypeFull    = "Full Payment"
	PaymentTypeHalf    = "Half Payment"
	PaymentTypePartial = "Partial Payment"
)

// Reservation records a customer's booking of one billiard table for a
// time slot, together with how it was (or will be) paid.
//
// Fields:
//
//	ID             – primary key identifier.
//	ReservationNo  – business identifier printed in the customer's QR code.
//	AccountID      – account that submitted the reservation.
//	TableID        – reserved billiard table.
//	ReservationDate, StartTime, TimeEnd – slot, stored as entered (YYYY-MM-DD, HH:MM).
//	Duration       – duration option identifier chosen by the customer.
//	BilliardType   – table type copied from the catalogue at submission.
//	PaymentMethod  – GCash or Cash.
//	PaymentType    – Full, Half or Partial Payment.
//	TotalBill      – price for the whole slot.
//	FullAmount, HalfAmount, PartialAmount – amount declared for the chosen type.
//	PaymentStatus  – true once the bill is settled in full.
//	ReferenceNo    – GCash reference or system-generated cash reference.
//	ProofOfPayment – base64 data URL of the uploaded GCash receipt.
//	Status         – pending, approved, completed or cancelled.
type Reservation struct {
	ID              uint64              `json:"id"`
	ReservationNo   string              `json:"reservation_no"`
	AccountID       uint64              `json:"account_id"`
	TableID         uint64              `json:"table_id"`
	ReservationDate string              `json:"reservation_date"`
	StartTime       string              `json:"start_time"`
	TimeEnd         string              `json:"time_end"`
	Duration        int                 `json:"duration"`
	BilliardType    string              `json:"billiard_type"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentType     string              `json:"payment_type"`
	TotalBill       decimal.Decimal     `json:"total_bill"`
	FullAmount      decimal.NullDecimal `json:"full_amount"`
	HalfAmount      decimal.NullDecimal `json:"half_amount"`
	PartialAmount   decimal.NullDecimal `json:"partial_amount"`
	PaymentStatus   bool                `json:"payment_status"`
	ReferenceNo     *string             `json:"reference_no"`
	ProofOfPayment  *string             `json:"proof_of_payment,omitempty"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
}

// IsCheckInEligible reports whether the reservation may still be checked in.
func (r Reservation) IsCheckInEligible() bool {
	return IsEligibleStatus(r.Status)
}

// IsEligibleStatus reports whether status is pending or approved.
func IsEligibleStatus(status string) bool {
	s := strings.TrimSpace(status)
	return s == StatusPending || s == StatusApproved
}

// EligibleStatuses lists the statuses loaded into a check-in snapshot.
func EligibleStatuses() []string { return []string{StatusPending, StatusApproved} }

// CheckInPatch is the column subset written when a reservation is checked
// in.  Nil pointers leave the column unchanged.
type CheckInPatch struct {
	Status        string  `json:"status"`
	PaymentStatus *bool   `json:"payment_status,omitempty"`
	ReferenceNo   *string `json:"reference_no,omitempty"`
}

// Package queue defines the events exchanged over the message broker and the
// background consumer that journals them.
package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

// Queue names.  Both are durable and use the default exchange.
const (
	CheckInCompletedQueue     = "checkin.completed"
	ReservationSubmittedQueue = "reservation.submitted"
)

// CheckInCompletedEvent is published after the front desk checks a
// reservation in.
type CheckInCompletedEvent struct {
	ReservationID uint64          `json:"reservation_id"`
	ReservationNo string          `json:"reservation_no"`
	AccountID     uint64          `json:"account_id"`
	TableID       uint64          `json:"table_id"`
	OperatorID    uint64          `json:"operator_id"`
	OperatorRole  string          `json:"operator_role"`
	PaymentMethod string          `json:"payment_method"`
	PaymentType   string          `json:"payment_type"`
	PaymentStatus bool            `json:"payment_status"`
	ReferenceNo   string          `json:"reference_no,omitempty"`
	TotalBill     decimal.Decimal `json:"total_bill"`
	CheckedInAt   string          `json:"checked_in_at"`
}

// NewCheckInCompletedEvent builds the event for a committed check-in.
func NewCheckInCompletedEvent(operatorID uint64, operatorRole string, r model.Reservation, at time.Time) CheckInCompletedEvent {
	ev := CheckInCompletedEvent{
		ReservationID: r.ID,
		ReservationNo: r.ReservationNo,
		AccountID:     r.AccountID,
		TableID:       r.TableID,
		OperatorID:    operatorID,
		OperatorRole:  operatorRole,
		PaymentMethod: r.PaymentMethod,
		PaymentType:   r.PaymentType,
		PaymentStatus: r.PaymentStatus,
		TotalBill:     r.TotalBill,
		CheckedInAt:   at.UTC().Format(time.RFC3339),
	}
	if r.ReferenceNo != nil {
		ev.ReferenceNo = *r.ReferenceNo
	}
	return ev
}

// ReservationSubmittedEvent is published when a customer submits payment
// for one or more tables.
type ReservationSubmittedEvent struct {
	AccountID      uint64          `json:"account_id"`
	ReservationNos []string        `json:"reservation_nos"`
	TableIDs       []uint64        `json:"table_ids"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentType    string          `json:"payment_type"`
	TotalBill      decimal.Decimal `json:"total_bill"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	SubmittedAt    string          `json:"submitted_at"`
}

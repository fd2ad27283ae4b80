// Package service publishes domain events to RabbitMQ.  Publish errors are
// logged and returned; callers treat them as non-fatal.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/billiard-reservation/internal/booking"
	"github.com/iliyamo/billiard-reservation/internal/checkin"
	"github.com/iliyamo/billiard-reservation/internal/model"
	"github.com/iliyamo/billiard-reservation/internal/queue"
)

var logger = log.New("rabbitmq")

// Publisher sends events over a short-lived connection per message.
type Publisher struct {
	url string
	now func() time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, now: time.Now}
}

// CheckInCompleted implements checkin.Notifier.
func (p *Publisher) CheckInCompleted(ctx context.Context, op checkin.Operator, res model.Reservation) error {
	ev := queue.NewCheckInCompletedEvent(op.AccountID, op.Role, res, p.now())
	return p.publish(ctx, queue.CheckInCompletedQueue, ev)
}

// ReservationSubmitted implements booking.Publisher.
func (p *Publisher) ReservationSubmitted(ctx context.Context, s booking.Submission) error {
	return p.publish(ctx, queue.ReservationSubmittedQueue, SubmittedEvent(s))
}

// SubmittedEvent converts a submission to its broker payload.
func SubmittedEvent(s booking.Submission) queue.ReservationSubmittedEvent {
	ev := queue.ReservationSubmittedEvent{
		AccountID:     s.AccountID,
		PaymentMethod: s.PaymentMethod,
		PaymentType:   s.PaymentType,
		TotalBill:     s.Total,
		AmountPaid:    s.AmountPaid,
		SubmittedAt:   s.SubmittedAt.UTC().Format(time.RFC3339),
	}
	for _, r := range s.Reservations {
		ev.ReservationNos = append(ev.ReservationNos, r.ReservationNo)
		ev.TableIDs = append(ev.TableIDs, r.TableID)
	}
	return ev
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.Errorf("dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Errorf("channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		logger.Errorf("queue declare %s failed: %v", queueName, err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		logger.Errorf("publish to %s failed: %v", queueName, err)
		return err
	}
	return nil
}

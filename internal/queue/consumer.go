package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

var logger = log.New("queue-consumer")

// Journal appends one line per event to files under Dir.
type Journal struct {
	Dir string
}

func (j Journal) append(name, line string) error {
	dir := j.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Handle decodes a delivery from queue and journals it.
func (j Journal) Handle(queue string, body []byte) error {
	switch queue {
	case CheckInCompletedQueue:
		var ev CheckInCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return j.append("checkin.log", FormatCheckIn(ev))
	case ReservationSubmittedQueue:
		var ev ReservationSubmittedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return j.append("reservations.log", FormatSubmitted(ev))
	}
	return fmt.Errorf("unknown queue %q", queue)
}

// FormatCheckIn renders a check-in as a single journal line.
func FormatCheckIn(ev CheckInCompletedEvent) string {
	ref := ev.ReferenceNo
	if ref == "" {
		ref = "-"
	}
	return fmt.Sprintf("[%s] Checked in | reservation=%s (id=%d) | table=%d | operator=%d (%s) | payment=%s/%s | paid=%t | ref=%s | total=%s\n",
		ev.CheckedInAt, ev.ReservationNo, ev.ReservationID, ev.TableID, ev.OperatorID, ev.OperatorRole,
		ev.PaymentMethod, ev.PaymentType, ev.PaymentStatus, ref, ev.TotalBill.StringFixed(2))
}

// FormatSubmitted renders a payment submission as a single journal line.
func FormatSubmitted(ev ReservationSubmittedEvent) string {
	return fmt.Sprintf("[%s] Reservation submitted | account=%d | reservations=[%s] | payment=%s/%s | total=%s | paid=%s\n",
		ev.SubmittedAt, ev.AccountID, strings.Join(ev.ReservationNos, ","), ev.PaymentMethod, ev.PaymentType,
		ev.TotalBill.StringFixed(2), ev.AmountPaid.StringFixed(2))
}

// StartConsumer consumes both event queues until ctx is cancelled,
// reconnecting with exponential back-off when the broker goes away.
// Messages that cannot be journalled are rejected without requeueing.
func StartConsumer(ctx context.Context, url string, j Journal) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warnf("failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, j)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warnf("consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, j Journal) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warnf("set QoS failed: %v", err)
	}

	type source struct {
		queue string
		msgs  <-chan amqp.Delivery
	}
	var sources []source
	for _, name := range []string{CheckInCompletedQueue, ReservationSubmittedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		sources = append(sources, source{queue: name, msgs: msgs})
	}

	checkins, submissions := sources[0].msgs, sources[1].msgs
	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-checkins:
			queue = CheckInCompletedQueue
		case d, ok = <-submissions:
			queue = ReservationSubmittedQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := j.Handle(queue, d.Body); err != nil {
			logger.Errorf("handle %s message failed: %v", queue, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

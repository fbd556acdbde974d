package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LogFileName is the file, inside the consumer's directory, that receives
// one line per event.
const LogFileName = "parking.log"

// StartParkingConsumer connects to RabbitMQ, declares the parking.events
// queue (durable) and appends each message to <dir>/parking.log.  It
// reconnects with exponential backoff until ctx is cancelled, then returns
// ctx.Err().  Malformed messages are rejected without requeue.
func StartParkingConsumer(ctx context.Context, url, dir string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			slog.Warn("parking-consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, dir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("parking-consumer: consume loop ended, reconnecting", "err", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("parking-consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(ParkingQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ParkingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(dir, d.Body); err != nil {
				slog.Error("parking-consumer: handle message failed", "err", err, "message_id", d.MessageId)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(dir string, body []byte) error {
	var ev ParkingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type != EventSpotBooked && ev.Type != EventSpotReleased {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatEvent renders one human-friendly log line, newline included.
func formatEvent(ev ParkingEvent) string {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case EventSpotReleased:
		ended := ""
		if ev.EndedAt.Valid {
			ended = ev.EndedAt.Time.UTC().Format(time.RFC3339)
		}
		return fmt.Sprintf("[%s] Spot released | reservation_id=%d | user_id=%d | lot_id=%d | lot=%q | spot=%d | started=%s | ended=%s | cost=%.2f\n",
			at, ev.ReservationID, ev.UserID, ev.LotID, ev.LotName, ev.SpotNumber,
			ev.StartedAt.UTC().Format(time.RFC3339), ended, ev.Cost)
	default:
		return fmt.Sprintf("[%s] Spot booked | reservation_id=%d | user_id=%d | lot_id=%d | lot=%q | spot=%d | started=%s\n",
			at, ev.ReservationID, ev.UserID, ev.LotID, ev.LotName, ev.SpotNumber,
			ev.StartedAt.UTC().Format(time.RFC3339))
	}
}

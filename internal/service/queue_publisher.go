// Package service holds outbound integrations used by the HTTP handlers.
// Publishing errors are logged and returned so callers can ignore failures
// without interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/parking-reservation/internal/queue"
)

// AMQPPublisher publishes parking events to RabbitMQ.  A connection is
// opened per event, which keeps the publisher stateless and tolerant of
// broker restarts.
type AMQPPublisher struct {
	URL string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// defaultDialTimeout matches amqp.Dial when ctx carries no deadline.
const defaultDialTimeout = 30 * time.Second

// dialTimeout is the time left until ctx's deadline.  amqp dials ignore
// the context, so the deadline has to be carried into the dialer.
func dialTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout, nil
	}
	d := time.Until(deadline)
	if d <= 0 {
		return 0, context.DeadlineExceeded
	}
	return d, nil
}

// Publish sends ev to the parking.events queue as a persistent JSON message.
// Connecting, including the AMQP handshake, is bounded by ctx's deadline.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.ParkingEvent) error {
	d, err := dialTimeout(ctx)
	if err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(d),
	})
	if err != nil {
		slog.Warn("rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Warn("rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.ParkingQueueName, true, false, false, false, nil); err != nil {
		slog.Warn("rabbitmq: queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.ParkingQueueName, false, false, pub); err != nil {
		slog.Warn("rabbitmq: publish failed", "err", err, "event_id", ev.EventID)
		return err
	}
	return nil
}

// NopPublisher drops every event.  It is used when the queue is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.ParkingEvent) error { return nil }

package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends audit events to the message broker. Publishing is
// best-effort: a broker outage must never fail the request that produced the
// event, so errors are logged and returned for callers that want to know.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given AMQP URL. An empty URL
// disables publishing; Publish becomes a no-op.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Publish sends one audit event to the durable audit queue. The connection is
// established per publish; audit volume is a handful of events per user
// session, not a throughput concern.
func (p *Publisher) Publish(ctx context.Context, ev AuditEvent) error {
	if p.url == "" {
		return nil
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("audit-publisher: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("audit-publisher: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		log.Printf("audit-publisher: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("audit-publisher: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", AuditQueueName, false, false, pub); err != nil {
		log.Printf("audit-publisher: publish failed: %v", err)
		return err
	}
	return nil
}

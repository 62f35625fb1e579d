package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/repository"
)

// StartAuditConsumer connects to RabbitMQ, declares the durable audit queue
// and persists every event into the audit_events table. It runs a reconnect
// loop with exponential backoff and keeps running across broker outages;
// malformed messages are rejected without requeue so the loop cannot spin.
func StartAuditConsumer(url string, audits *repository.AuditRepo) error {
	if url == "" {
		return errors.New("audit-consumer: no broker URL configured")
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, audits); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, audits *repository.AuditRepo) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, audits); err != nil {
			log.Printf("audit-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, audits *repository.AuditRepo) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	occurred, err := time.Parse(time.RFC3339, ev.OccurredAt)
	if err != nil {
		occurred = time.Now().UTC()
	}
	row := model.AuditEvent{
		ActorEmail: ev.ActorEmail,
		Action:     ev.Action,
		Detail:     ev.Detail,
		CreatedAt:  occurred,
	}
	if ev.AccountID != "" {
		row.AccountID = &ev.AccountID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := audits.Insert(ctx, row); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

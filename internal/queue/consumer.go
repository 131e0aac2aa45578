// Package queue contains the background consumer that drains the
// audit.logs queue into the audit_logs table.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
)

// AuditStore is the sink the consumer writes to.
// *repository.AuditRepo satisfies it.
type AuditStore interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
}

// StartAuditConsumer connects to RabbitMQ, declares the audit.logs
// queue (durable), and starts consuming events. The function runs a
// reconnect loop with exponential backoff and keeps running for the
// lifetime of the process; a message that cannot be processed is
// rejected without requeue so the loop never spins on a poison
// payload.
func StartAuditConsumer(url string, store AuditStore, logger *zap.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, store, logger); err != nil {
			logger.Warn("audit consumer: consume loop ended", zap.Error(err))
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, store AuditStore, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("audit consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, store); err != nil {
			logger.Error("audit consumer: handle message failed", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, store AuditStore) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	entry := EventToLog(ev)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Insert(ctx, &entry); err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

// EventToLog maps a broker event onto an audit table row.
func EventToLog(ev AuditEvent) model.AuditLog {
	when := ev.OccurredAt
	if when.IsZero() {
		when = time.Now().UTC()
	}
	return model.AuditLog{
		UserInitials: ev.UserInitials,
		UserName:     ev.UserName,
		EntityType:   ev.EntityType,
		EntityID:     ev.EntityID,
		EntityName:   ev.EntityName,
		Action:       ev.Action,
		Changes:      ev.Changes,
		Metadata:     ev.Metadata,
		Description:  ev.Description,
		CreatedAt:    when,
	}
}

package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/queue"
)

// ContainerNamer resolves container ids to display names for audit
// enrichment.  *repository.ContainerRepo satisfies it.
type ContainerNamer interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// AuditSink is the direct-write fallback used when the broker is
// unreachable.  *repository.AuditRepo satisfies it.
type AuditSink interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
}

// AuditRecorder records audit events. It publishes to RabbitMQ so the
// write happens off the request path, falling back to a direct table
// insert when the broker is down. Recording is strictly best-effort:
// no error ever reaches the caller, failures are logged and dropped.
type AuditRecorder struct {
	BrokerURL  string
	Sink       AuditSink
	Containers ContainerNamer
	Logger     *zap.Logger
}

func NewAuditRecorder(brokerURL string, sink AuditSink, containers ContainerNamer, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{BrokerURL: brokerURL, Sink: sink, Containers: containers, Logger: logger}
}

// Record enriches and persists one audit event. Safe to call with the
// request context; it never returns an error.
func (a *AuditRecorder) Record(ctx context.Context, ev queue.AuditEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	a.enrichContainerNames(ctx, &ev)

	if a.BrokerURL != "" {
		err := a.publish(ctx, ev)
		if err == nil {
			return
		}
		a.Logger.Warn("audit publish failed, writing directly", zap.Error(err))
	}

	entry := queue.EventToLog(ev)
	if err := a.Sink.Insert(ctx, &entry); err != nil {
		a.Logger.Error("audit write failed, event dropped",
			zap.String("action", ev.Action),
			zap.String("entity_type", ev.EntityType),
			zap.String("entity_name", ev.EntityName),
			zap.Error(err))
	}
}

// enrichContainerNames replaces container ids referenced in metadata
// with human-readable names so the audit trail stays legible after a
// container is deleted.
func (a *AuditRecorder) enrichContainerNames(ctx context.Context, ev *queue.AuditEvent) {
	if a.Containers == nil || len(ev.Metadata) == 0 {
		return
	}
	keys := []string{"container_id", "from_container", "to_container", "previous_container_id"}
	var ids []string
	for _, k := range keys {
		if id, ok := ev.Metadata[k].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	names, err := a.Containers.NamesByIDs(ctx, ids)
	if err != nil {
		return
	}
	for _, k := range keys {
		if id, ok := ev.Metadata[k].(string); ok {
			if name, ok := names[id]; ok {
				ev.Metadata[k+"_name"] = name
			}
		}
	}
}

// publish sends the event to the audit.logs queue. Connections are
// opened per publish, same as the broker's own CLI tooling does; audit
// volume is low enough that this stays well under connection limits.
func (a *AuditRecorder) publish(ctx context.Context, ev queue.AuditEvent) error {
	conn, err := amqp.Dial(a.BrokerURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(queue.AuditQueueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",                   // default exchange
		queue.AuditQueueName, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		})
}

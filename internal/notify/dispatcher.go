package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/observability"
)

// AuditStore appends delivery-log entries.
type AuditStore interface {
	Create(ctx context.Context, entry *domain.DeliveryLogEntry) error
}

// Dispatcher sends resolved messages through the sink, fire-and-forget.
// Every attempt is audited; failures are recorded and never propagated.
type Dispatcher struct {
	sink    Sink
	audit   AuditStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(sink Sink, audit AuditStore, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, audit: audit, metrics: metrics, logger: logger}
}

// Dispatch sends every message, recording one delivery-log entry per
// attempt. It never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []Message) {
	for _, msg := range messages {
		d.dispatchOne(ctx, msg)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, msg Message) {
	entry := &domain.DeliveryLogEntry{
		Recipient: msg.Recipient.Email,
		Type:      msg.Type,
		Subject:   msg.Subject,
		TicketID:  msg.TicketID,
	}

	providerID, err := d.sink.Send(ctx, msg)
	if err != nil {
		errMsg := err.Error()
		entry.Status = domain.DeliveryFailed
		entry.ErrorMessage = &errMsg
		d.logger.Warn("notification delivery failed",
			zap.String("recipient", msg.Recipient.Email),
			zap.String("type", string(msg.Type)),
			zap.Error(err))
	} else {
		entry.Status = domain.DeliverySent
		if providerID != "" {
			entry.ProviderID = &providerID
		}
	}

	d.metrics.RecordDelivery(string(msg.Type), string(entry.Status))

	if d.audit == nil {
		return
	}
	if auditErr := d.audit.Create(ctx, entry); auditErr != nil {
		// the audit trail is best-effort too; never bubbles up
		d.logger.Error("delivery audit write failed", zap.Error(auditErr))
	}
}

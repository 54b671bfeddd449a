package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/events"
)

// changeNotice is the compact payload pushed to the realtime bus: enough
// identity for subscribers to invalidate their own caches, nothing more.
type changeNotice struct {
	TicketID  string              `json:"ticket_id"`
	NewStatus domain.TicketStatus `json:"new_status,omitempty"`
	EventType events.EventType    `json:"event_type"`
}

// Publisher pushes one change notification per committed mutation onto a
// Redis channel consumed by the realtime frontends. Publishing is
// best-effort; a lost notice is tolerated.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewPublisher constructs a publisher.
func NewPublisher(client *redis.Client, channel string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, channel: channel, logger: logger}
}

// RegisterHandlers subscribes to ticket mutation events.
func (p *Publisher) RegisterHandlers(bus events.Dispatcher) {
	if bus == nil || p.client == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventStatusChanged,
		events.EventFieldsChanged,
		events.EventCommentAdded,
	} {
		bus.Subscribe(eventType, p.handle)
	}
}

func (p *Publisher) handle(ctx context.Context, event events.Event) error {
	notice := changeNotice{TicketID: event.TicketID, EventType: event.Type}
	switch event.Type {
	case events.EventTicketCreated:
		notice.NewStatus = domain.TicketStatusNew
	case events.EventStatusChanged:
		if payload, ok := event.Payload.(events.StatusChangedPayload); ok {
			notice.NewStatus = payload.NewStatus
		}
	}

	raw, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.Warn("realtime publish failed",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}

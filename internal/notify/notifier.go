package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/proroto/workorder-service/internal/events"
)

// Notifier glues the event stream to the router and dispatcher. It runs on
// the event dispatcher's worker, fully decoupled from the request cycle.
type Notifier struct {
	router     *Router
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewNotifier constructs a notifier.
func NewNotifier(router *Router, dispatcher *Dispatcher, logger *zap.Logger) *Notifier {
	return &Notifier{router: router, dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to the events the router knows how to route.
func (n *Notifier) RegisterHandlers(bus events.Dispatcher) {
	if bus == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventStatusChanged,
		events.EventCommentAdded,
		events.EventInvitationCreated,
	} {
		bus.Subscribe(eventType, n.handle)
	}
}

func (n *Notifier) handle(ctx context.Context, event events.Event) error {
	messages, err := n.router.Resolve(ctx, event)
	if err != nil {
		n.logger.Warn("recipient resolution failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return nil
	}
	n.dispatcher.Dispatch(ctx, messages)
	return nil
}

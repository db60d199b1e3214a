package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/dineflow/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

const Source = "checkout-service"

// Broadcaster receives payment events directly when no durable stream is configured.
type Broadcaster interface {
	BroadcastPaymentEvent(evt event.PaymentStatusEvent)
}

// Notifier publishes status changes after their transaction committed.
// Publishing is best effort: failures are logged and never undo a commit.
// The payment stream captures payments.status itself, so payment events go
// to the stream when one is configured and to the core publisher otherwise.
type Notifier struct {
	publisher   events.Publisher
	stream      events.Publisher
	broadcaster Broadcaster
	logger      aqm.Logger
}

func NewNotifier(publisher, stream events.Publisher, broadcaster Broadcaster, logger aqm.Logger) *Notifier {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Notifier{
		publisher:   publisher,
		stream:      stream,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (n *Notifier) PaymentChanged(ctx context.Context, evt event.PaymentStatusEvent) {
	if n == nil {
		return
	}
	evt.EventType = event.EventPaymentStatusChanged
	evt.Source = Source
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	if n.stream != nil {
		n.publish(ctx, n.stream, event.PaymentStatusTopic, evt, "reference", evt.Reference)
		return
	}

	n.publish(ctx, n.publisher, event.PaymentStatusTopic, evt, "reference", evt.Reference)
	if n.broadcaster != nil {
		n.broadcaster.BroadcastPaymentEvent(evt)
	}
}

func (n *Notifier) TableChanged(ctx context.Context, evt event.TableStatusEvent) {
	if n == nil {
		return
	}
	evt.EventType = event.EventTableStatusChanged
	evt.Source = Source
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	n.publish(ctx, n.publisher, event.TableStatusTopic, evt, "table_id", evt.TableID)
}

func (n *Notifier) OrderChanged(ctx context.Context, evt event.OrderStatusEvent) {
	if n == nil {
		return
	}
	evt.EventType = event.EventOrderStatusChanged
	evt.Source = Source
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	n.publish(ctx, n.publisher, event.OrderStatusTopic, evt, "order_id", evt.OrderID)
}

func (n *Notifier) publish(ctx context.Context, pub events.Publisher, topic string, payload interface{}, key, value string) {
	if pub == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("cannot marshal event", "topic", topic, key, value, "error", err)
		return
	}

	if err := pub.Publish(ctx, topic, data); err != nil {
		n.logger.Error("cannot publish event", "topic", topic, key, value, "error", err)
	}
}

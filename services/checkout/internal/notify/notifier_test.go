package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/appetiteclub/dineflow/pkg/event"
)

type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[topic] = append(m.messages[topic], msg)
	return nil
}

type MockBroadcaster struct {
	events []event.PaymentStatusEvent
}

func (m *MockBroadcaster) BroadcastPaymentEvent(evt event.PaymentStatusEvent) {
	m.events = append(m.events, evt)
}

func TestNotifierPaymentChanged(t *testing.T) {
	tests := []struct {
		name          string
		withStream    bool
		wantPublished int
		wantStream    int
		wantBroadcast int
	}{
		{name: "withStream", withStream: true, wantPublished: 0, wantStream: 1, wantBroadcast: 0},
		{name: "withoutStream", withStream: false, wantPublished: 1, wantStream: 0, wantBroadcast: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := NewMockPublisher()
			stream := NewMockPublisher()
			broadcaster := &MockBroadcaster{}

			var n *Notifier
			if tt.withStream {
				n = NewNotifier(pub, stream, broadcaster, nil)
			} else {
				n = NewNotifier(pub, nil, broadcaster, nil)
			}

			n.PaymentChanged(context.Background(), event.PaymentStatusEvent{Reference: "ORDER-1", PaymentStatus: "success"})

			if got := len(pub.messages[event.PaymentStatusTopic]); got != tt.wantPublished {
				t.Errorf("published %d messages, want %d", got, tt.wantPublished)
			}
			if got := len(stream.messages[event.PaymentStatusTopic]); got != tt.wantStream {
				t.Errorf("streamed %d messages, want %d", got, tt.wantStream)
			}
			if got := len(broadcaster.events); got != tt.wantBroadcast {
				t.Errorf("broadcast %d events, want %d", got, tt.wantBroadcast)
			}

			if total := len(pub.messages[event.PaymentStatusTopic]) + len(stream.messages[event.PaymentStatusTopic]); total != 1 {
				t.Fatalf("payments.status received %d messages, want exactly 1", total)
			}
			raw := append(pub.messages[event.PaymentStatusTopic], stream.messages[event.PaymentStatusTopic]...)[0]

			var evt event.PaymentStatusEvent
			if err := json.Unmarshal(raw, &evt); err != nil {
				t.Fatalf("cannot decode event: %v", err)
			}
			if evt.EventType != event.EventPaymentStatusChanged || evt.Source != Source || evt.OccurredAt.IsZero() {
				t.Errorf("event envelope not filled: %+v", evt)
			}
		})
	}
}

func TestNotifierPublishFailureIsSwallowed(t *testing.T) {
	pub := NewMockPublisher()
	pub.err = errors.New("nats down")
	n := NewNotifier(pub, nil, nil, nil)

	n.TableChanged(context.Background(), event.TableStatusEvent{TableID: "t1", Status: "reserved"})
	n.OrderChanged(context.Background(), event.OrderStatusEvent{OrderID: "o1", Status: "processing"})
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	n.PaymentChanged(context.Background(), event.PaymentStatusEvent{})
	n.TableChanged(context.Background(), event.TableStatusEvent{})
	n.OrderChanged(context.Background(), event.OrderStatusEvent{})
}

package commands

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/appetiteclub/dineflow/pkg/event"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2025, 3, 14, 19, 5, 0, 0, time.UTC)

	mustJSON := func(v interface{}) []byte {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}

	tests := []struct {
		name    string
		topic   string
		data    []byte
		want    string
		wantErr bool
	}{
		{
			name:  "payment",
			topic: event.PaymentStatusTopic,
			data: mustJSON(event.PaymentStatusEvent{
				OccurredAt: at, Reference: "ORDER-abc", PreviousStatus: "pending",
				TargetStatus: "processing", PaymentStatus: "success", Amount: 20000,
			}),
			want: "[19:05:00] payment ORDER-abc pending -> processing (payment success, 20,000)",
		},
		{
			name:  "table",
			topic: event.TableStatusTopic,
			data: mustJSON(event.TableStatusEvent{
				OccurredAt: at, TableNumber: "T03", PreviousStatus: "available", Status: "reserved",
				Reason: "reservation.confirmed",
			}),
			want: "[19:05:00] table T03 available -> reserved (reservation.confirmed)",
		},
		{
			name:  "orderWithoutPrevious",
			topic: event.OrderStatusTopic,
			data: mustJSON(event.OrderStatusEvent{
				OccurredAt: at, OrderID: "o-1", Status: "completed", OrderType: "takeaway", TotalAmount: 45000,
			}),
			want: "[19:05:00] order o-1 - -> completed (takeaway, 45,000)",
		},
		{name: "malformed", topic: event.OrderStatusTopic, data: []byte("{"), wantErr: true},
		{name: "unknownTopic", topic: "kitchen.tickets", data: []byte("{}"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatEvent(tt.topic, tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("formatEvent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("formatEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}

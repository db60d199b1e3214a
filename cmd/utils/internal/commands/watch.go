package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aquamarinepk/aqm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/appetiteclub/dineflow/pkg"
	"github.com/appetiteclub/dineflow/pkg/event"
)

var amounts = message.NewPrinter(language.English)

var watchedTopics = []string{
	event.PaymentStatusTopic,
	event.TableStatusTopic,
	event.OrderStatusTopic,
}

// Watch prints one line per status event until ctx is cancelled.
func Watch(ctx context.Context, config *aqm.Config, out io.Writer, logger aqm.Logger) error {
	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	sub, err := pkg.NewNATSSubscriber(natsURL, logger)
	if err != nil {
		return err
	}
	defer sub.Close()

	var mu sync.Mutex
	for _, topic := range watchedTopics {
		topic := topic
		err := sub.Subscribe(ctx, topic, func(ctx context.Context, data []byte) error {
			line, err := formatEvent(topic, data)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(out, line)
			return err
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	logger.Info("Watching events", "url", natsURL, "topics", watchedTopics)
	<-ctx.Done()
	return nil
}

func formatEvent(topic string, data []byte) (string, error) {
	switch topic {
	case event.PaymentStatusTopic:
		var evt event.PaymentStatusEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return "", fmt.Errorf("decode payment event: %w", err)
		}
		return fmt.Sprintf("%s payment %s %s -> %s (payment %s, %s)",
			stamp(evt.OccurredAt.Format("15:04:05")), evt.Reference, orDash(evt.PreviousStatus),
			evt.TargetStatus, evt.PaymentStatus, amounts.Sprintf("%d", evt.Amount)), nil

	case event.TableStatusTopic:
		var evt event.TableStatusEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return "", fmt.Errorf("decode table event: %w", err)
		}
		return fmt.Sprintf("%s table %s %s -> %s (%s)",
			stamp(evt.OccurredAt.Format("15:04:05")), evt.TableNumber, orDash(evt.PreviousStatus),
			evt.Status, orDash(evt.Reason)), nil

	case event.OrderStatusTopic:
		var evt event.OrderStatusEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return "", fmt.Errorf("decode order event: %w", err)
		}
		return fmt.Sprintf("%s order %s %s -> %s (%s, %s)",
			stamp(evt.OccurredAt.Format("15:04:05")), evt.OrderID, orDash(evt.PreviousStatus),
			evt.Status, evt.OrderType, amounts.Sprintf("%d", evt.TotalAmount)), nil

	default:
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
}

func stamp(clock string) string {
	return "[" + clock + "]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package reconcile

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/appetiteclub/dineflow/pkg"
	"github.com/appetiteclub/dineflow/pkg/event"
	"github.com/aquamarinepk/aqm"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	PaymentStreamService = "dineflow.payments.PaymentEventStream"
	PaymentStreamMethod  = "StreamPaymentEvents"
)

// PaymentEventStreamer is the server API of the payment event stream.
type PaymentEventStreamer interface {
	StreamPaymentEvents(req *structpb.Struct, stream grpc.ServerStream) error
}

// PaymentEventStreamDesc describes the stream service. Requests may carry a
// "reference" field to follow a single checkout.
var PaymentEventStreamDesc = grpc.ServiceDesc{
	ServiceName: PaymentStreamService,
	HandlerType: (*PaymentEventStreamer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    PaymentStreamMethod,
			Handler:       streamPaymentEventsHandler,
			ServerStreams: true,
		},
	},
}

func streamPaymentEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(PaymentEventStreamer).StreamPaymentEvents(req, stream)
}

// PaymentEventStreamServer fans payment events out to gRPC subscribers. When
// a durable stream is configured it feeds itself from it; otherwise the
// notifier broadcasts to it directly.
type PaymentEventStreamServer struct {
	stream *pkg.NATSStream
	logger aqm.Logger

	mu          sync.RWMutex
	subscribers map[string]chan *event.PaymentStatusEvent
}

func NewPaymentEventStreamServer(stream *pkg.NATSStream, logger aqm.Logger) *PaymentEventStreamServer {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &PaymentEventStreamServer{
		stream:      stream,
		logger:      logger,
		subscribers: make(map[string]chan *event.PaymentStatusEvent),
	}
}

// RegisterGRPCService registers this service with the gRPC server (aqm.GRPCServiceRegistrar interface)
func (s *PaymentEventStreamServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&PaymentEventStreamDesc, s)
}

// Start replays retained events and then follows the durable stream.
func (s *PaymentEventStreamServer) Start(ctx context.Context) error {
	if s.stream == nil {
		return nil
	}

	pending, err := s.stream.Fetch(ctx, 0)
	if err != nil {
		s.logger.Info("payment stream catch-up incomplete", "error", err)
	}
	for _, msg := range pending {
		_ = s.handleStreamMessage(ctx, msg.Data)
	}

	return s.stream.SubscribeStream(ctx, s.handleStreamMessage)
}

func (s *PaymentEventStreamServer) Stop(ctx context.Context) error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *PaymentEventStreamServer) handleStreamMessage(ctx context.Context, data []byte) error {
	var evt event.PaymentStatusEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		// Malformed events are dropped, redelivery would not fix them.
		s.logger.Error("cannot decode payment event", "error", err)
		return nil
	}
	s.BroadcastPaymentEvent(evt)
	return nil
}

// StreamPaymentEvents implements the gRPC streaming endpoint.
func (s *PaymentEventStreamServer) StreamPaymentEvents(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	subscriberID := aqm.GenerateNewID().String()
	reference := req.GetFields()["reference"].GetStringValue()

	s.logger.Info("new payment events subscriber", "subscriber_id", subscriberID, "reference_filter", reference)

	eventChan := make(chan *event.PaymentStatusEvent, 100)

	s.mu.Lock()
	s.subscribers[subscriberID] = eventChan
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, subscriberID)
		s.mu.Unlock()
		s.logger.Info("payment events subscriber disconnected", "subscriber_id", subscriberID)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-eventChan:
			if reference != "" && evt.Reference != reference {
				continue
			}

			msg, err := PaymentEventStruct(evt)
			if err != nil {
				s.logger.Errorf("failed to encode event: %v", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				s.logger.Errorf("failed to send event: %v", err)
				return err
			}
		}
	}
}

// BroadcastPaymentEvent sends an event to all connected subscribers.
func (s *PaymentEventStreamServer) BroadcastPaymentEvent(evt event.PaymentStatusEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for subscriberID, ch := range s.subscribers {
		select {
		case ch <- &evt:
		default:
			s.logger.Info("subscriber channel full, dropping event", "subscriber_id", subscriberID)
		}
	}
}

// SubscriberCount reports the number of connected subscribers.
func (s *PaymentEventStreamServer) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// PaymentEventStruct converts evt into its wire form.
func PaymentEventStruct(evt *event.PaymentStatusEvent) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"event_type":         evt.EventType,
		"occurred_at":        evt.OccurredAt.UTC().Format(time.RFC3339Nano),
		"reference":          evt.Reference,
		"target_kind":        evt.TargetKind,
		"target_id":          evt.TargetID,
		"target_status":      evt.TargetStatus,
		"previous_status":    evt.PreviousStatus,
		"payment_id":         evt.PaymentID,
		"transaction_id":     evt.TransactionID,
		"transaction_status": evt.TransactionStatus,
		"payment_status":     evt.PaymentStatus,
		"amount":             float64(evt.Amount),
		"payment_method":     evt.PaymentMethod,
		"source":             evt.Source,
	}
	return structpb.NewStruct(fields)
}

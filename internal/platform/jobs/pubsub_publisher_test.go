package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/stylefit/api/internal/services"
)

func newTestPublisher(t *testing.T) (*PubSubEventPublisher, *pstest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	fittingTopic, err := client.CreateTopic(ctx, "fitting-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	orderTopic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubEventPublisher(fittingTopic, orderTopic)
	if err != nil {
		t.Fatalf("NewPubSubEventPublisher: %v", err)
	}
	return publisher, srv
}

func TestPubSubEventPublisherPublishesFittingEvent(t *testing.T) {
	ctx := context.Background()
	publisher, srv := newTestPublisher(t)

	msg := services.FittingRecordedMessage{
		TryOnID:    "tryon_test",
		UserID:     "user-1",
		ProductID:  "prod-1",
		Source:     "catalog",
		FitScore:   92,
		RecordedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}

	if _, err := publisher.PublishFittingRecorded(ctx, msg); err != nil {
		t.Fatalf("PublishFittingRecorded: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.FittingRecordedMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TryOnID != msg.TryOnID || payload.FitScore != msg.FitScore {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["eventType"]; attr != "fitting.recorded" {
		t.Fatalf("expected eventType attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["productId"]; attr != "prod-1" {
		t.Fatalf("expected productId attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["designId"]; ok {
		t.Fatalf("designId attribute should not be present for catalog fittings")
	}
}

func TestPubSubEventPublisherPublishesOrderEvent(t *testing.T) {
	ctx := context.Background()
	publisher, srv := newTestPublisher(t)

	msg := services.OrderPlacedMessage{
		OrderID:     "order_test",
		UserID:      "user-2",
		Currency:    "USD",
		AmountTotal: 12800,
		PlacedAt:    time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC),
	}

	if _, err := publisher.PublishOrderPlaced(ctx, msg); err != nil {
		t.Fatalf("PublishOrderPlaced: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.OrderPlacedMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != msg.OrderID || payload.AmountTotal != msg.AmountTotal {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["eventType"]; attr != "order.placed" {
		t.Fatalf("expected eventType attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["currency"]; attr != "USD" {
		t.Fatalf("expected currency attribute, got %q", attr)
	}
}

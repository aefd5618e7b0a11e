package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/stylefit/api/internal/services"
)

// PubSubEventPublisher publishes fitting and order lifecycle events to Pub/Sub topics.
type PubSubEventPublisher struct {
	fittingTopic *pubsub.Topic
	orderTopic   *pubsub.Topic
	marshal      func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubEventPublisher(fittingTopic, orderTopic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if fittingTopic == nil {
		return nil, errors.New("pubsub event publisher: fitting topic is required")
	}
	if orderTopic == nil {
		return nil, errors.New("pubsub event publisher: order topic is required")
	}
	return &PubSubEventPublisher{
		fittingTopic: fittingTopic,
		orderTopic:   orderTopic,
		marshal:      json.Marshal,
	}, nil
}

// PublishFittingRecorded enqueues a fitting.recorded event on the fitting topic.
func (p *PubSubEventPublisher) PublishFittingRecorded(ctx context.Context, message services.FittingRecordedMessage) (string, error) {
	if p == nil || p.fittingTopic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal fitting event: %w", err)
	}

	attrs := map[string]string{"eventType": "fitting.recorded"}
	setAttr(attrs, "tryOnId", message.TryOnID)
	setAttr(attrs, "userId", message.UserID)
	setAttr(attrs, "productId", message.ProductID)
	setAttr(attrs, "designId", message.DesignID)
	setAttr(attrs, "source", message.Source)

	result := p.fittingTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish fitting event: %w", err)
	}
	return id, nil
}

// PublishOrderPlaced enqueues an order.placed event on the order topic.
func (p *PubSubEventPublisher) PublishOrderPlaced(ctx context.Context, message services.OrderPlacedMessage) (string, error) {
	if p == nil || p.orderTopic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal order event: %w", err)
	}

	attrs := map[string]string{"eventType": "order.placed"}
	setAttr(attrs, "orderId", message.OrderID)
	setAttr(attrs, "userId", message.UserID)
	setAttr(attrs, "currency", message.Currency)

	result := p.orderTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

// Package events publishes checkout domain events to RabbitMQ. Downstream
// consumers (fulfillment, notifications) are separate services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stondral/marketplace-checkout/internal/checkout"
)

const SellerOrderCreatedQueue = "seller_order.created"

// SellerOrderCreated is the per-seller event emitted once a checkout attempt
// fully succeeds. One checkout emits one event per seller order.
type SellerOrderCreated struct {
	EventType     string        `json:"eventType"`
	OrderID       string        `json:"orderId"`
	CheckoutID    string        `json:"checkoutId"`
	BuyerID       string        `json:"buyerId"`
	SellerID      string        `json:"sellerId"`
	Total         string        `json:"total"`
	PaymentMethod string        `json:"paymentMethod"`
	PaymentStatus string        `json:"paymentStatus"`
	Items         []OrderedItem `json:"items"`
	Timestamp     time.Time     `json:"timestamp"`
}

type OrderedItem struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     string  `json:"price"`
}

func Dial(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare the queue up front so publish never fails on missing infra.
	if _, err := ch.QueueDeclare(SellerOrderCreatedQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare %s: %w", SellerOrderCreatedQueue, err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) SellerOrderCreated(ctx context.Context, o *checkout.SellerOrder) error {
	ev := SellerOrderCreated{
		EventType:     "SellerOrderCreated",
		OrderID:       o.ID,
		CheckoutID:    o.CheckoutID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Total:         o.Total.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Timestamp:     time.Now().UTC(),
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderedItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.PriceAtPurchase.StringFixed(2),
		})
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal SellerOrderCreated: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		"",                      // default exchange
		SellerOrderCreatedQueue, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

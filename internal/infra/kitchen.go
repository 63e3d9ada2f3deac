package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// KOTPrintedRoutingKey is the topic kitchen display screens bind to.
const KOTPrintedRoutingKey = "kot.printed"

// KOTPrintedItem is one line of a printed ticket as seen by the kitchen.
type KOTPrintedItem struct {
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Note         string `json:"note,omitempty"`
	SpicePercent int    `json:"spicePercent,omitempty"`
	IsJain       bool   `json:"isJain,omitempty"`
}

// KOTPrintedEvent is published once per ticket after a print run succeeds.
type KOTPrintedEvent struct {
	RestaurantID string           `json:"restaurantId"`
	BillID       string           `json:"billId"`
	TableName    string           `json:"tableName"`
	KOTID        string           `json:"kotId"`
	Number       int              `json:"number"`
	Items        []KOTPrintedItem `json:"items"`
	PrintedAt    time.Time        `json:"printedAt"`
}

// KitchenPublisher publishes kitchen events to a durable topic exchange with
// publisher confirms.
type KitchenPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	acks     <-chan amqp.Confirmation
	exchange string
	mu       sync.Mutex
}

// NewKitchenPublisher dials url and declares exchange.
func NewKitchenPublisher(url, exchange string) (*KitchenPublisher, error) {
	if exchange == "" {
		exchange = "kitchen"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("kitchen: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("kitchen: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("kitchen: declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("kitchen: enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &KitchenPublisher{conn: conn, ch: ch, acks: acks, exchange: exchange}, nil
}

// PublishKOTPrinted sends ev and waits for the broker ack.
func (p *KitchenPublisher) PublishKOTPrinted(ctx context.Context, ev KOTPrintedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, KOTPrintedRoutingKey, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: ev.BillID,
		Timestamp:     time.Now().UTC(),
		Headers:       amqp.Table{"x-source": "tablepos"},
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("kitchen: publish: %w", err)
	}

	select {
	case conf := <-p.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("kitchen: publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping reports whether the broker connection is still open.
func (p *KitchenPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("kitchen: connection is closed")
	}
	return nil
}

func (p *KitchenPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

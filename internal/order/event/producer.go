package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopmicro/shopmicro/internal/order/domain"
	pkgkafka "github.com/shopmicro/shopmicro/pkg/kafka"
)

// Kafka topic constants for order domain events.
const (
	TopicOrderCreated       = "shopmicro.order.created"
	TopicOrderStatusChanged = "shopmicro.order.status_changed"
	TopicOrderDeleted       = "shopmicro.order.deleted"
)

// Aggregate type constant.
const AggregateTypeOrder = "order"

// Source identifier for events originating from the order service.
const SourceOrderService = "order-service"

// OrderItemData is a line item inside an order.created event payload.
type OrderItemData struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID            string          `json:"id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	Status        string          `json:"status"`
	TotalAmount   int64           `json:"total_amount"`
	Items         []OrderItemData `json:"items"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	ID        string `json:"id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// OrderDeletedData is the payload for an order.deleted event.
type OrderDeletedData struct {
	ID string `json:"id"`
}

// Producer publishes order domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the order service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}

	data := OrderCreatedData{
		ID:            order.ID,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		Status:        order.Status,
		TotalAmount:   order.TotalAmount,
		Items:         items,
	}

	return p.publish(ctx, TopicOrderCreated, order.ID, data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	data := OrderStatusChangedData{ID: orderID, OldStatus: oldStatus, NewStatus: newStatus}
	return p.publish(ctx, TopicOrderStatusChanged, orderID, data)
}

// PublishOrderDeleted publishes an order.deleted event.
func (p *Producer) PublishOrderDeleted(ctx context.Context, orderID string) error {
	return p.publish(ctx, TopicOrderDeleted, orderID, OrderDeletedData{ID: orderID})
}

func (p *Producer) publish(ctx context.Context, topic, orderID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, orderID, AggregateTypeOrder, SourceOrderService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published order event",
		slog.String("topic", topic),
		slog.String("order_id", orderID),
	)

	return nil
}

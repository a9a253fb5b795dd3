package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopmicro/shopmicro/internal/product/domain"
	pkgkafka "github.com/shopmicro/shopmicro/pkg/kafka"
)

// Kafka topic constants for product domain events.
const (
	TopicProductCreated      = "shopmicro.product.created"
	TopicProductUpdated      = "shopmicro.product.updated"
	TopicProductStockUpdated = "shopmicro.product.stock_updated"
	TopicProductDeleted      = "shopmicro.product.deleted"
)

// Aggregate type constant.
const AggregateTypeProduct = "product"

// Source identifier for events originating from the product service.
const SourceProductService = "product-service"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	Category      string `json:"category"`
}

// ProductStockUpdatedData is the payload for a product.stock_updated event.
type ProductStockUpdatedData struct {
	ID            int64 `json:"id"`
	StockQuantity int   `json:"stock_quantity"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID int64 `json:"id"`
}

// Producer publishes product domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the product service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, productData(product))
}

// PublishProductStockUpdated publishes a product.stock_updated event.
func (p *Producer) PublishProductStockUpdated(ctx context.Context, product *domain.Product) error {
	data := ProductStockUpdatedData{ID: product.ID, StockQuantity: product.StockQuantity}
	return p.publish(ctx, TopicProductStockUpdated, product.ID, data)
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, TopicProductDeleted, id, ProductDeletedData{ID: id})
}

func (p *Producer) publish(ctx context.Context, topic string, productID int64, data any) error {
	aggregateID := strconv.FormatInt(productID, 10)

	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeProduct, SourceProductService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.Int64("product_id", productID),
	)

	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shopmicro/shopmicro/internal/order/client"
	"github.com/shopmicro/shopmicro/internal/order/domain"
	"github.com/shopmicro/shopmicro/internal/order/event"
	"github.com/shopmicro/shopmicro/internal/order/repository"
	apperrors "github.com/shopmicro/shopmicro/pkg/errors"
)

// ProductResolver resolves a product snapshot for a line item, falling back
// to the sentinel snapshot when the catalog is unusable.
// client.ResilientProductClient satisfies this.
type ProductResolver interface {
	Resolve(ctx context.Context, productID int64) (*client.ProductSnapshot, error)
}

// OrderService implements the business logic for order operations, most
// importantly the order-creation workflow: resolve every line item against
// the catalog, validate stock against the observed snapshot, accumulate the
// total, then persist the whole aggregate in one transaction.
type OrderService struct {
	repo           repository.OrderRepository
	resolver       ProductResolver
	producer       *event.Producer
	logger         *slog.Logger
	resolveTimeout time.Duration
}

// NewOrderService creates a new order service. resolveTimeout bounds the
// catalog resolution phase of order creation; zero means no extra bound
// beyond the caller's context.
func NewOrderService(
	repo repository.OrderRepository,
	resolver ProductResolver,
	producer *event.Producer,
	logger *slog.Logger,
	resolveTimeout time.Duration,
) *OrderService {
	return &OrderService{
		repo:           repo,
		resolver:       resolver,
		producer:       producer,
		logger:         logger,
		resolveTimeout: resolveTimeout,
	}
}

// CreateOrderItemInput holds the parameters for an order line item.
type CreateOrderItemInput struct {
	ProductID int64
	Quantity  int
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	CustomerEmail string
	CustomerName  string
	Items         []CreateOrderItemInput
}

// validate checks the shape of the input before any network or database work.
func (in *CreateOrderInput) validate() error {
	if in.CustomerEmail == "" {
		return apperrors.InvalidInput("customer_email is required")
	}
	if !strings.Contains(in.CustomerEmail, "@") {
		return apperrors.InvalidInput("customer_email must be a valid email address")
	}
	if in.CustomerName == "" {
		return apperrors.InvalidInput("customer_name is required")
	}
	if len(in.Items) == 0 {
		return apperrors.InvalidInput("order must contain at least one item")
	}
	for i, item := range in.Items {
		if item.ProductID < 1 {
			return apperrors.InvalidInput(fmt.Sprintf("items[%d]: product_id must be a positive integer", i))
		}
		if !domain.ValidQuantity(item.Quantity) {
			return apperrors.InvalidInput(fmt.Sprintf(
				"items[%d]: quantity must be between %d and %d",
				i, domain.MinItemQuantity, domain.MaxItemQuantity,
			))
		}
	}
	return nil
}

// CreateOrder runs the order-creation workflow. Either the whole aggregate
// (order plus items, with snapshot prices and a consistent total) is
// persisted, or nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	snapshots, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	// Validate stock against the snapshots observed at call time. A fallback
	// snapshot carries zero stock, so an unusable catalog blocks the order
	// the same way a genuine shortage does.
	for i, snapshot := range snapshots {
		requested := input.Items[i].Quantity
		if snapshot.StockQuantity < requested {
			return nil, apperrors.InsufficientStock(snapshot.Name, requested, snapshot.StockQuantity)
		}
	}

	now := time.Now().UTC()
	orderID := uuid.New().String()

	// Build line items in request order; the total is the sum of line totals.
	var total int64
	items := make([]domain.OrderItem, len(input.Items))
	for i, itemInput := range input.Items {
		item := domain.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			ProductID:   itemInput.ProductID,
			ProductName: snapshots[i].Name,
			Quantity:    itemInput.Quantity,
			UnitPrice:   snapshots[i].Price,
		}
		item.TotalPrice = item.LineTotal()
		total += item.TotalPrice
		items[i] = item
	}

	order := &domain.Order{
		ID:            orderID,
		CustomerEmail: input.CustomerEmail,
		CustomerName:  input.CustomerName,
		Status:        domain.OrderStatusPending,
		Items:         items,
		TotalAmount:   total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("customer_email", order.CustomerEmail),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("items", len(order.Items)),
	)

	return order, nil
}

// resolveItems resolves every line item through the resilient catalog client
// concurrently. Results are indexed so the persisted item sequence preserves
// the original request order. The first business failure (unknown product)
// or cancellation aborts the whole resolution.
func (s *OrderService) resolveItems(ctx context.Context, items []CreateOrderItemInput) ([]*client.ProductSnapshot, error) {
	if s.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.resolveTimeout)
		defer cancel()
	}

	snapshots := make([]*client.ProductSnapshot, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			snapshot, err := s.resolver.Resolve(gctx, item.ProductID)
			if err != nil {
				return err
			}
			snapshots[i] = snapshot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve order items: %w", err)
	}

	return snapshots, nil
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of orders.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus sets the order status. Any valid status value is
// accepted; the order must exist.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, newStatus string) (*domain.Order, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", newStatus, strings.Join(domain.ValidStatuses(), ", ")))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	oldStatus := order.Status

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, newStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	order.Status = newStatus
	return order, nil
}

// DeleteOrder removes an order and its items.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err := s.producer.PublishOrderDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.deleted event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order deleted",
		slog.String("order_id", id),
	)

	return nil
}

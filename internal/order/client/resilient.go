package client

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/shopmicro/shopmicro/pkg/errors"
)

// ResilientProductClient composes the breaker-gated, retrying catalog client
// into one resolve contract with a defined fallback. Terminal transient
// failures (retries exhausted, breaker open, server errors) produce the
// fallback snapshot instead of an error, letting the order workflow decide
// how to react. NotFound is a business failure and propagates as an error.
type ResilientProductClient struct {
	catalog ProductCatalog
	logger  *slog.Logger
}

// NewResilientProductClient wraps the given catalog port.
func NewResilientProductClient(catalog ProductCatalog, logger *slog.Logger) *ResilientProductClient {
	return &ResilientProductClient{
		catalog: catalog,
		logger:  logger,
	}
}

// Resolve returns the product snapshot for the given id, or the fallback
// sentinel when the catalog is unusable. The error is non-nil only for
// business failures (unknown product) and caller cancellation.
func (c *ResilientProductClient) Resolve(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	snapshot, err := c.catalog.GetProduct(ctx, productID)
	if err == nil {
		return snapshot, nil
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	// Only a dead caller context propagates. A deadline error while ctx is
	// still live is the HTTP client's per-attempt timeout and degrades to
	// the fallback like any other transient failure.
	if ctx.Err() != nil {
		return nil, err
	}

	c.logger.WarnContext(ctx, "product lookup failed, using fallback snapshot",
		slog.Int64("product_id", productID),
		slog.String("error", err.Error()),
	)

	return FallbackSnapshot(productID), nil
}

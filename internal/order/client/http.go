package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/shopmicro/shopmicro/pkg/errors"
	"github.com/shopmicro/shopmicro/pkg/httpclient"
)

// ProductCatalog is the port to the external product catalog: fetch a
// product's current name, price, and stock by id. Implementations fail with
// pkg/errors.ErrNotFound when the product does not exist and with transport
// errors on timeout or connection failure. No side effects.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID int64) (*ProductSnapshot, error)
}

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CatalogClient is the HTTP implementation of ProductCatalog, talking to the
// product service.
type CatalogClient struct {
	httpClient HTTPDoer
	baseURL    string
}

// NewCatalogClient creates a catalog client against the given base URL.
func NewCatalogClient(httpClient HTTPDoer, baseURL string) *CatalogClient {
	return &CatalogClient{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// productResponse mirrors the product service's response envelope.
type productResponse struct {
	Data *struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		Price         int64  `json:"price"`
		StockQuantity int    `json:"stock_quantity"`
	} `json:"data"`
}

// GetProduct fetches a product snapshot from the catalog service.
func (c *CatalogClient) GetProduct(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	url := c.baseURL + "/api/v1/products/" + strconv.FormatInt(productID, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call product service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Consume the structured body, but the sentinel is what matters to callers.
		_ = httpclient.ParseResponseError(resp, "product")
		return nil, apperrors.NotFound("product", strconv.FormatInt(productID, 10))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "product")
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if body.Data == nil {
		return nil, errors.New("product response missing data")
	}

	return &ProductSnapshot{
		ID:            body.Data.ID,
		Name:          body.Data.Name,
		Price:         body.Data.Price,
		StockQuantity: body.Data.StockQuantity,
	}, nil
}

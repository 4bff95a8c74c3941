package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cart-management/model"
)

// ErrNotFound is returned when the catalog has no record for a product.
var ErrNotFound = errors.New("product not found")

const defaultTimeout = 10 * time.Second

// Client talks to the storefront API that serves /stock/{id} and /products/{id}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. A zero timeout falls back to ten seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetStock fetches the available quantity for a product.
func (c *Client) GetStock(ctx context.Context, productID int64) (model.Stock, error) {
	var stock model.Stock
	if err := c.get(ctx, fmt.Sprintf("%s/stock/%d", c.baseURL, productID), &stock); err != nil {
		return model.Stock{}, fmt.Errorf("get stock for product %d: %w", productID, err)
	}
	return stock, nil
}

// GetProduct fetches product metadata. Any amount field in the payload is ignored.
func (c *Client) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	var product model.Product
	if err := c.get(ctx, fmt.Sprintf("%s/products/%d", c.baseURL, productID), &product); err != nil {
		return model.Product{}, fmt.Errorf("get product %d: %w", productID, err)
	}
	return product, nil
}

func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

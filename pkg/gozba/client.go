package gozba

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// API is the surface of the Gozba core API the checkout gateway consumes.
// Pricing, order creation, addresses and restaurant records all live
// upstream; the gateway only orchestrates.
type API interface {
	PreviewOrder(ctx context.Context, customerToken string, restaurantID uint, draft OrderDraft) (*OrderPreview, error)
	CreateOrder(ctx context.Context, customerToken string, restaurantID uint, draft OrderDraft) (*Order, error)
	ListAddresses(ctx context.Context, customerToken string) ([]Address, error)
	CreateAddress(ctx context.Context, customerToken string, fields AddressFields) (*Address, error)
	GetRestaurant(ctx context.Context, restaurantID uint) (*Restaurant, error)
}

// Client is an HTTP client for the Gozba core API.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a new core API client with the given configuration.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// PreviewOrder requests a priced, non-committing projection of the draft.
func (c *Client) PreviewOrder(ctx context.Context, customerToken string, restaurantID uint, draft OrderDraft) (*OrderPreview, error) {
	path := fmt.Sprintf("restaurants/%d/orders/preview", restaurantID)
	body, err := c.doRequest(ctx, http.MethodPost, path, customerToken, draft)
	if err != nil {
		return nil, err
	}

	var preview OrderPreview
	if err := json.Unmarshal(body, &preview); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preview response: %w", err)
	}
	return &preview, nil
}

// CreateOrder submits the draft as a real order.
func (c *Client) CreateOrder(ctx context.Context, customerToken string, restaurantID uint, draft OrderDraft) (*Order, error) {
	path := fmt.Sprintf("restaurants/%d/orders", restaurantID)
	body, err := c.doRequest(ctx, http.MethodPost, path, customerToken, draft)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order response: %w", err)
	}
	return &order, nil
}

// ListAddresses returns the customer's saved delivery addresses.
func (c *Client) ListAddresses(ctx context.Context, customerToken string) ([]Address, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "addresses", customerToken, nil)
	if err != nil {
		return nil, err
	}

	var addresses []Address
	if err := json.Unmarshal(body, &addresses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal addresses response: %w", err)
	}
	return addresses, nil
}

// CreateAddress saves a new delivery address for the customer.
func (c *Client) CreateAddress(ctx context.Context, customerToken string, fields AddressFields) (*Address, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "addresses", customerToken, fields)
	if err != nil {
		return nil, err
	}

	var address Address
	if err := json.Unmarshal(body, &address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal address response: %w", err)
	}
	return &address, nil
}

// GetRestaurant fetches the restaurant record consulted by the checkout.
func (c *Client) GetRestaurant(ctx context.Context, restaurantID uint) (*Restaurant, error) {
	path := fmt.Sprintf("restaurants/%d", restaurantID)
	body, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var restaurant Restaurant
	if err := json.Unmarshal(body, &restaurant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal restaurant response: %w", err)
	}
	return &restaurant, nil
}

// doRequest performs an HTTP request against the core API.
func (c *Client) doRequest(ctx context.Context, method, path, customerToken string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, path)

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if customerToken != "" {
		req.Header.Set("Authorization", "Bearer "+customerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error,
			Message:    envelope.Message,
		}
	}

	return body, nil
}

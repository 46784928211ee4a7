// Package http provides the HTTP implementation of the provider invoice
// gateway: REST calls to the payment provider's invoice API, authenticated
// by a bearer token scoped per environment.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	bpcheckout "github.com/bpcheckout/bpcheckout-go"
)

// Provider API base URLs per environment.
const (
	TestAPIURL = "https://test.bitpay.com"
	ProdAPIURL = "https://bitpay.com"
)

// EnvTest selects the sandbox endpoints; anything else selects production.
const EnvTest = "test"

// apiVersion is sent on every request; the provider rejects unversioned calls.
const apiVersion = "2.0.0"

// GatewayConfig configures the invoice gateway client.
type GatewayConfig struct {
	// Env selects sandbox ("test") vs production endpoints.
	Env string

	// Token is the provider API token.
	Token string

	// BaseURL overrides the environment-derived API URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s). Ignored when
	// HTTPClient is set.
	Timeout time.Duration
}

// InvoiceClient talks to the provider's invoice REST API. It implements
// bpcheckout.InvoiceGateway.
type InvoiceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewInvoiceClient creates a provider invoice client.
func NewInvoiceClient(config *GatewayConfig) *InvoiceClient {
	if config == nil {
		config = &GatewayConfig{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		if config.Env == EnvTest {
			baseURL = TestAPIURL
		} else {
			baseURL = ProdAPIURL
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &InvoiceClient{
		baseURL:    baseURL,
		token:      config.Token,
		httpClient: httpClient,
	}
}

// invoiceEnvelope is the provider's response wrapper.
type invoiceEnvelope struct {
	Data bpcheckout.Invoice `json:"data"`
}

// createInvoiceRequest is the invoice-creation wire shape. The token rides
// in the body as the provider API requires, alongside the bearer header.
type createInvoiceRequest struct {
	bpcheckout.InvoiceParams
	Token string `json:"token"`
}

// CreateInvoice creates a provider invoice for the given parameters.
func (c *InvoiceClient) CreateInvoice(ctx context.Context, params bpcheckout.InvoiceParams) (*bpcheckout.Invoice, error) {
	body, err := json.Marshal(createInvoiceRequest{InvoiceParams: params, Token: c.token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, bpcheckout.NewGatewayError(
			fmt.Sprintf("invoice create request failed: %s", err.Error()), nil)
	}
	defer resp.Body.Close()

	return decodeInvoice(resp, "create")
}

// GetInvoice fetches the authoritative invoice by id.
func (c *InvoiceClient) GetInvoice(ctx context.Context, invoiceID string) (*bpcheckout.Invoice, error) {
	endpoint := c.baseURL + "/invoices/" + url.PathEscape(invoiceID) + "?token=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice fetch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, bpcheckout.NewGatewayError(
			fmt.Sprintf("invoice fetch request failed: %s", err.Error()),
			map[string]interface{}{"invoice_id": invoiceID})
	}
	defer resp.Body.Close()

	return decodeInvoice(resp, "fetch")
}

func (c *InvoiceClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Accept-Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func decodeInvoice(resp *http.Response, op string) (*bpcheckout.Invoice, error) {
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, bpcheckout.NewGatewayError(
			fmt.Sprintf("failed to read invoice %s response: %s", op, err.Error()), nil)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, bpcheckout.NewGatewayError(
			fmt.Sprintf("invoice %s failed (%d): %s", op, resp.StatusCode, string(responseBody)),
			map[string]interface{}{"status_code": resp.StatusCode})
	}

	var envelope invoiceEnvelope
	if err := json.Unmarshal(responseBody, &envelope); err != nil {
		return nil, bpcheckout.NewGatewayError(
			fmt.Sprintf("failed to decode invoice %s response: %s", op, err.Error()), nil)
	}
	if envelope.Data.ID == "" {
		return nil, bpcheckout.NewGatewayError(
			fmt.Sprintf("invoice %s response missing invoice id", op), nil)
	}
	return &envelope.Data, nil
}

// Ensure InvoiceClient implements the gateway capability.
var _ bpcheckout.InvoiceGateway = (*InvoiceClient)(nil)

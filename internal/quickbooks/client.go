package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const apiVersion = "v3"

// Config holds QuickBooks API client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client issues authenticated requests against the QuickBooks Online v3
// API. It owns the base URL, the request timeout and response-shape
// normalization; credentials are passed per call, never stored.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new QuickBooks API client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateInvoice submits an invoice creation request. A customer ref still
// identified by name is resolved (or created) first and rewritten to its
// QuickBooks id. Returns the created invoice's QuickBooks id.
func (c *Client) CreateInvoice(ctx context.Context, auth Auth, payload InvoicePayload) (string, error) {
	const op = "create invoice"

	if payload.CustomerRef.Value == "" && payload.CustomerRef.Name != "" {
		ref, err := c.FindOrCreateCustomer(ctx, auth, payload.CustomerRef.Name)
		if err != nil {
			return "", err
		}
		payload.CustomerRef = EntityRef{Value: ref.Value}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, auth, "invoice", payload, op)
	if err != nil {
		return "", err
	}

	entity, err := extractEntity(resp, "Invoice", op)
	if err != nil {
		return "", err
	}

	c.logger.Info("created quickbooks invoice",
		zap.String("doc_number", payload.DocNumber),
		zap.String("quickbooks_id", entity.ID))
	return entity.ID, nil
}

// CreateBill submits a bill creation request. The vendor ref and the
// account ref of every expense line are resolved by name first.
func (c *Client) CreateBill(ctx context.Context, auth Auth, payload BillPayload) (string, error) {
	const op = "create bill"

	if payload.VendorRef.Value == "" && payload.VendorRef.Name != "" {
		ref, err := c.FindOrCreateVendor(ctx, auth, payload.VendorRef.Name)
		if err != nil {
			return "", err
		}
		payload.VendorRef = EntityRef{Value: ref.Value}
	}

	for i := range payload.Line {
		detail := payload.Line[i].AccountBasedExpenseLineDetail
		if detail == nil || detail.AccountRef.Value != "" || detail.AccountRef.Name == "" {
			continue
		}
		ref, err := c.FindOrCreateAccount(ctx, auth, detail.AccountRef.Name)
		if err != nil {
			return "", err
		}
		detail.AccountRef = EntityRef{Value: ref.Value}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, auth, "bill", payload, op)
	if err != nil {
		return "", err
	}

	entity, err := extractEntity(resp, "Bill", op)
	if err != nil {
		return "", err
	}

	c.logger.Info("created quickbooks bill",
		zap.String("doc_number", payload.DocNumber),
		zap.String("quickbooks_id", entity.ID))
	return entity.ID, nil
}

// GetCompanyInfo fetches the connected company's record. Used to validate
// that a credential still works.
func (c *Client) GetCompanyInfo(ctx context.Context, auth Auth) (*Entity, error) {
	const op = "get company info"

	endpoint := "companyinfo/" + auth.RealmID
	resp, err := c.doRequest(ctx, http.MethodGet, auth, endpoint, nil, op)
	if err != nil {
		return nil, err
	}
	return extractEntity(resp, "CompanyInfo", op)
}

// doRequest performs one authenticated API call and decodes the body into
// a partially parsed envelope. Timeout, transport failure, non-2xx status
// and undecodable body are classified as distinct causes on the returned
// APIError.
func (c *Client) doRequest(ctx context.Context, method string, auth Auth, endpoint string, body interface{}, op string) (envelope, error) {
	url := fmt.Sprintf("%s/%s/company/%s/%s", c.baseURL, apiVersion, auth.RealmID, endpoint)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Cause: CauseDecode, Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &APIError{Cause: CauseTransport, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("quickbooks request", zap.String("method", method), zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cause := CauseTransport
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			cause = CauseTimeout
		}
		c.logger.Error("quickbooks request failed",
			zap.String("endpoint", endpoint),
			zap.String("cause", string(cause)),
			zap.Error(err))
		return nil, &APIError{Cause: cause, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Cause: CauseTransport, Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("quickbooks returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))
		return nil, &APIError{
			Cause:      CauseHTTPStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %d: %s", resp.StatusCode, data),
		}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Error("failed to decode quickbooks response",
			zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &APIError{Cause: CauseDecode, Op: op, Err: err}
	}

	return env, nil
}

// extractEntity normalizes the two response shapes QuickBooks uses for a
// created or fetched object: wrapped under QueryResponse, or directly
// under the object's type name. Anything else is a decode failure.
func extractEntity(env envelope, typeName, op string) (*Entity, error) {
	if raw, ok := env["QueryResponse"]; ok {
		var inner envelope
		if err := json.Unmarshal(raw, &inner); err == nil {
			if list, ok := inner[typeName]; ok {
				var entities []Entity
				if err := json.Unmarshal(list, &entities); err != nil {
					return nil, &APIError{Cause: CauseDecode, Op: op, Err: err}
				}
				if len(entities) > 0 {
					return &entities[0], nil
				}
			}
		}
	}

	if raw, ok := env[typeName]; ok {
		var entity Entity
		if err := json.Unmarshal(raw, &entity); err != nil {
			return nil, &APIError{Cause: CauseDecode, Op: op, Err: err}
		}
		return &entity, nil
	}

	return nil, &APIError{
		Cause: CauseDecode,
		Op:    op,
		Err:   errors.New("unexpected response format from QuickBooks"),
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/waiyanhtun/booksync/internal/importer"
	"github.com/waiyanhtun/booksync/internal/models"
	"github.com/waiyanhtun/booksync/internal/quickbooks"
	"github.com/waiyanhtun/booksync/internal/repository"
	"github.com/waiyanhtun/booksync/internal/sync"
)

type stubInvoices struct {
	records   []*models.Invoice
	pending   []*models.Invoice
	createErr error
}

func (s *stubInvoices) Create(inv *models.Invoice) error {
	if s.createErr != nil {
		return s.createErr
	}
	inv.ID = int64(len(s.records) + 1)
	s.records = append(s.records, inv)
	return nil
}

func (s *stubInvoices) GetByID(id int64) (*models.Invoice, error) {
	for _, inv := range s.records {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, nil
}

func (s *stubInvoices) List() ([]*models.Invoice, error)        { return s.records, nil }
func (s *stubInvoices) ListPending() ([]*models.Invoice, error) { return s.pending, nil }

type stubBills struct {
	records   []*models.Bill
	pending   []*models.Bill
	createErr error
}

func (s *stubBills) Create(b *models.Bill) error {
	if s.createErr != nil {
		return s.createErr
	}
	b.ID = int64(len(s.records) + 1)
	s.records = append(s.records, b)
	return nil
}

func (s *stubBills) GetByID(id int64) (*models.Bill, error) {
	for _, b := range s.records {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (s *stubBills) List() ([]*models.Bill, error)        { return s.records, nil }
func (s *stubBills) ListPending() ([]*models.Bill, error) { return s.pending, nil }

type stubTokens struct {
	token *models.OAuthToken
	saved *models.OAuthToken
}

func (s *stubTokens) Save(t *models.OAuthToken) error { s.saved = t; s.token = t; return nil }
func (s *stubTokens) Get() (*models.OAuthToken, error) {
	return s.token, nil
}

type stubUploader struct {
	report        *sync.BatchReport
	outcome       sync.Outcome
	stats         *models.UploadStatistics
	uploadAllArgs struct {
		invoices int
		bills    int
	}
	uploadAllCalled bool
}

func (s *stubUploader) UploadAll(_ context.Context, invoices []*models.Invoice, bills []*models.Bill, _ quickbooks.Auth) *sync.BatchReport {
	s.uploadAllCalled = true
	s.uploadAllArgs.invoices = len(invoices)
	s.uploadAllArgs.bills = len(bills)
	return s.report
}

func (s *stubUploader) UploadInvoice(_ context.Context, _ *models.Invoice, _ quickbooks.Auth) sync.Outcome {
	return s.outcome
}

func (s *stubUploader) UploadBill(_ context.Context, _ *models.Bill, _ quickbooks.Auth) sync.Outcome {
	return s.outcome
}

func (s *stubUploader) Statistics() (*models.UploadStatistics, error) { return s.stats, nil }

type stubOAuth struct {
	refreshed bool
}

func (s *stubOAuth) AuthCodeURL(state string) string {
	return "https://appcenter.example.com/connect?state=" + state
}

func (s *stubOAuth) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code == "bad-code" {
		return nil, errors.New("invalid grant")
	}
	return &oauth2.Token{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (s *stubOAuth) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	s.refreshed = true
	return &oauth2.Token{AccessToken: "refreshed-access", Expiry: time.Now().Add(time.Hour)}, nil
}

type stubImporter struct{}

func (s *stubImporter) ImportWorkbook(_ io.Reader) (*importer.Result, error) {
	return &importer.Result{InvoicesImported: 1}, nil
}

type testEnv struct {
	invoices *stubInvoices
	bills    *stubBills
	tokens   *stubTokens
	uploader *stubUploader
	oauth    *stubOAuth
	srv      *Server
}

func newTestEnv() *testEnv {
	env := &testEnv{
		invoices: &stubInvoices{},
		bills:    &stubBills{},
		tokens:   &stubTokens{},
		uploader: &stubUploader{},
		oauth:    &stubOAuth{},
	}

	handlers := NewHandlers(
		env.invoices,
		env.bills,
		env.tokens,
		env.uploader,
		env.oauth,
		&stubImporter{},
		zap.NewNop(),
	)
	env.srv = New(Config{Host: "127.0.0.1", Port: 0}, handlers, zap.NewNop())
	return env
}

func (env *testEnv) connect() {
	env.tokens.token = &models.OAuthToken{
		AccessToken:  "access",
		RefreshToken: "refresh",
		RealmID:      "9130001",
	}
}

func (env *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestCreateInvoice(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodPost, "/api/invoices", map[string]interface{}{
		"customer_name":  "Acme Corp",
		"invoice_date":   "2026-01-15",
		"due_date":       "2026-02-15",
		"invoice_number": "INV-001",
		"description":    "Consulting",
		"amount":         1250.50,
		"tax_code":       "NON",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.invoices.records, 1)
	created := env.invoices.records[0]
	assert.Equal(t, "Acme Corp", created.CustomerName)
	assert.Equal(t, "1250.5", created.Amount.String())
	require.NotNil(t, created.DueDate)
}

func TestCreateInvoice_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing customer name",
			body: map[string]interface{}{
				"invoice_date": "2026-01-15", "invoice_number": "INV-001", "amount": 10,
			},
		},
		{
			name: "bad date format",
			body: map[string]interface{}{
				"customer_name": "Acme", "invoice_date": "15/01/2026",
				"invoice_number": "INV-001", "amount": 10,
			},
		},
		{
			name: "negative amount",
			body: map[string]interface{}{
				"customer_name": "Acme", "invoice_date": "2026-01-15",
				"invoice_number": "INV-001", "amount": -10,
			},
		},
		{
			name: "too many decimal places",
			body: map[string]interface{}{
				"customer_name": "Acme", "invoice_date": "2026-01-15",
				"invoice_number": "INV-001", "amount": 10.999,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()

			w := env.do(http.MethodPost, "/api/invoices", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, env.invoices.records)
		})
	}
}

func TestCreateInvoice_Duplicate(t *testing.T) {
	env := newTestEnv()
	env.invoices.createErr = fmt.Errorf("invoice INV-001: %w", repository.ErrDuplicateNumber)

	w := env.do(http.MethodPost, "/api/invoices", map[string]interface{}{
		"customer_name":  "Acme Corp",
		"invoice_date":   "2026-01-15",
		"invoice_number": "INV-001",
		"amount":         100,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "already exists")
}

func TestCreateBill(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodPost, "/api/bills", map[string]interface{}{
		"vendor_name":     "Supplies Inc",
		"bill_date":       "2026-03-01",
		"bill_number":     "BILL-001",
		"amount":          89.99,
		"expense_account": "Office Expenses",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.bills.records, 1)
	assert.Equal(t, "Office Expenses", env.bills.records[0].ExpenseAccount)
}

func TestCreateBill_RequiresExpenseAccount(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodPost, "/api/bills", map[string]interface{}{
		"vendor_name": "Supplies Inc",
		"bill_date":   "2026-03-01",
		"bill_number": "BILL-001",
		"amount":      89.99,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadInvoice_NotFound(t *testing.T) {
	env := newTestEnv()
	env.connect()

	w := env.do(http.MethodPost, "/api/invoices/42/upload", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadInvoice(t *testing.T) {
	env := newTestEnv()
	env.connect()
	env.invoices.records = []*models.Invoice{{ID: 1, InvoiceNumber: "INV-001"}}
	qbID := "qb-145"
	env.uploader.outcome = sync.Outcome{Status: sync.StatusSuccess, QuickBooksID: &qbID}

	w := env.do(http.MethodPost, "/api/invoices/1/upload", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestUploadAll_RequiresConnection(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodPost, "/api/upload-all", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.uploader.uploadAllCalled)
}

func TestUploadAll_NothingPending(t *testing.T) {
	env := newTestEnv()
	env.connect()

	w := env.do(http.MethodPost, "/api/upload-all", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "No pending invoices or bills to upload", resp.Message)
	assert.False(t, env.uploader.uploadAllCalled)
}

func TestUploadAll(t *testing.T) {
	env := newTestEnv()
	env.connect()
	env.invoices.pending = []*models.Invoice{{ID: 1}, {ID: 2}}
	env.bills.pending = []*models.Bill{{ID: 1}}
	env.uploader.report = &sync.BatchReport{
		BatchID: "batch-1",
		Summary: sync.Summary{TotalProcessed: 3, TotalSuccessful: 3},
	}

	w := env.do(http.MethodPost, "/api/upload-all", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.uploader.uploadAllCalled)
	assert.Equal(t, 2, env.uploader.uploadAllArgs.invoices)
	assert.Equal(t, 1, env.uploader.uploadAllArgs.bills)
}

func TestUploadAll_RefreshesExpiredToken(t *testing.T) {
	env := newTestEnv()
	expired := time.Now().Add(-time.Hour)
	env.tokens.token = &models.OAuthToken{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		RealmID:      "9130001",
		ExpiresAt:    &expired,
	}

	w := env.do(http.MethodPost, "/api/upload-all", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.oauth.refreshed)
	require.NotNil(t, env.tokens.saved)
	assert.Equal(t, "refreshed-access", env.tokens.saved.AccessToken)
}

func TestOAuthCallback_MissingParams(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/auth/callback?code=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOAuthFlow(t *testing.T) {
	env := newTestEnv()

	// Kick off the flow to obtain a state value.
	w := env.do(http.MethodGet, "/auth/quickbooks", nil)
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	require.NotEmpty(t, location)
	state := location[len("https://appcenter.example.com/connect?state="):]

	w = env.do(http.MethodGet, "/auth/callback?code=good&realmId=9130001&state="+state, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.tokens.saved)
	assert.Equal(t, "access-good", env.tokens.saved.AccessToken)
	assert.Equal(t, "9130001", env.tokens.saved.RealmID)
}

func TestUploadStatus(t *testing.T) {
	env := newTestEnv()
	qbID := "qb-1"
	errMsg := "Upload failed: request timeout"
	env.invoices.records = []*models.Invoice{
		{ID: 1, InvoiceNumber: "INV-001", CustomerName: "Acme", QuickBooksID: &qbID},
		{ID: 2, InvoiceNumber: "INV-002", CustomerName: "Acme", UploadError: &errMsg},
	}

	w := env.do(http.MethodGet, "/api/upload-status", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data UploadStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Invoices, 2)
	assert.True(t, resp.Data.Invoices[0].Uploaded)
	assert.False(t, resp.Data.Invoices[1].Uploaded)
	require.NotNil(t, resp.Data.Invoices[1].UploadError)
	assert.Empty(t, resp.Data.Bills)
}

func TestStatistics(t *testing.T) {
	env := newTestEnv()
	env.uploader.stats = &models.UploadStatistics{
		Overall: models.VariantStats{Total: 7, Uploaded: 4, Pending: 3},
	}

	w := env.do(http.MethodGet, "/api/statistics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

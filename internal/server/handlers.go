package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/waiyanhtun/booksync/internal/importer"
	"github.com/waiyanhtun/booksync/internal/models"
	"github.com/waiyanhtun/booksync/internal/quickbooks"
	"github.com/waiyanhtun/booksync/internal/repository"
	"github.com/waiyanhtun/booksync/internal/sync"
	"github.com/waiyanhtun/booksync/pkg/utils"
)

const dateLayout = "2006-01-02"

// InvoiceStore is the invoice repository surface the handlers use.
type InvoiceStore interface {
	Create(inv *models.Invoice) error
	GetByID(id int64) (*models.Invoice, error)
	List() ([]*models.Invoice, error)
	ListPending() ([]*models.Invoice, error)
}

// BillStore is the bill repository surface the handlers use.
type BillStore interface {
	Create(b *models.Bill) error
	GetByID(id int64) (*models.Bill, error)
	List() ([]*models.Bill, error)
	ListPending() ([]*models.Bill, error)
}

// TokenStore persists the QuickBooks connection.
type TokenStore interface {
	Save(t *models.OAuthToken) error
	Get() (*models.OAuthToken, error)
}

// Uploader is the sync engine surface the handlers use.
type Uploader interface {
	UploadAll(ctx context.Context, invoices []*models.Invoice, bills []*models.Bill, auth quickbooks.Auth) *sync.BatchReport
	UploadInvoice(ctx context.Context, inv *models.Invoice, auth quickbooks.Auth) sync.Outcome
	UploadBill(ctx context.Context, b *models.Bill, auth quickbooks.Auth) sync.Outcome
	Statistics() (*models.UploadStatistics, error)
}

// Authorizer drives the OAuth authorization-code flow.
type Authorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// WorkbookImporter loads spreadsheets into the record store.
type WorkbookImporter interface {
	ImportWorkbook(r io.Reader) (*importer.Result, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	invoices InvoiceStore
	bills    BillStore
	tokens   TokenStore
	uploader Uploader
	oauth    Authorizer
	importer WorkbookImporter
	logger   *zap.Logger

	oauthState string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	invoices InvoiceStore,
	bills BillStore,
	tokens TokenStore,
	uploader Uploader,
	oauth Authorizer,
	imp WorkbookImporter,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		invoices: invoices,
		bills:    bills,
		tokens:   tokens,
		uploader: uploader,
		oauth:    oauth,
		importer: imp,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateInvoiceRequest is the JSON body for POST /api/invoices
type CreateInvoiceRequest struct {
	CustomerName  string      `json:"customer_name" binding:"required"`
	InvoiceDate   string      `json:"invoice_date" binding:"required"`
	DueDate       string      `json:"due_date"`
	InvoiceNumber string      `json:"invoice_number" binding:"required"`
	Description   string      `json:"description"`
	Amount        json.Number `json:"amount" binding:"required"`
	TaxCode       string      `json:"tax_code"`
}

// CreateBillRequest is the JSON body for POST /api/bills
type CreateBillRequest struct {
	VendorName     string      `json:"vendor_name" binding:"required"`
	BillDate       string      `json:"bill_date" binding:"required"`
	DueDate        string      `json:"due_date"`
	BillNumber     string      `json:"bill_number" binding:"required"`
	Description    string      `json:"description"`
	Amount         json.Number `json:"amount" binding:"required"`
	ExpenseAccount string      `json:"expense_account" binding:"required"`
}

// RecordStatus is one row of the upload-status listing.
type RecordStatus struct {
	ID             int64   `json:"id"`
	DocumentNumber string  `json:"document_number"`
	Counterparty   string  `json:"counterparty"`
	Amount         float64 `json:"amount"`
	Uploaded       bool    `json:"uploaded"`
	QuickBooksID   *string `json:"quickbooks_id,omitempty"`
	UploadError    *string `json:"upload_error,omitempty"`
}

// UploadStatusResponse groups record statuses by variant.
type UploadStatusResponse struct {
	Invoices []RecordStatus `json:"invoices"`
	Bills    []RecordStatus `json:"bills"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ConnectQuickBooks handles GET /auth/quickbooks by redirecting the
// browser to the Intuit consent page.
func (h *Handlers) ConnectQuickBooks(c *gin.Context) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to generate oauth state")
		return
	}
	h.oauthState = hex.EncodeToString(buf)

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(h.oauthState))
}

// OAuthCallback handles GET /auth/callback. Intuit supplies the company
// (realm) id as a query parameter alongside the authorization code.
func (h *Handlers) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	realmID := c.Query("realmId")
	state := c.Query("state")

	if code == "" || realmID == "" {
		h.fail(c, http.StatusBadRequest, "missing code or realmId parameter")
		return
	}
	if state != h.oauthState || h.oauthState == "" {
		h.fail(c, http.StatusBadRequest, "oauth state mismatch")
		return
	}
	h.oauthState = ""

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("OAuth code exchange failed", zap.Error(err))
		h.fail(c, http.StatusBadGateway, "failed to exchange authorization code")
		return
	}

	stored := &models.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		RealmID:      realmID,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		stored.ExpiresAt = &expiry
	}

	if err := h.tokens.Save(stored); err != nil {
		h.logger.Error("Failed to store oauth token", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to store tokens")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "QuickBooks connected",
		Data:    gin.H{"realm_id": realmID},
	})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	invoices, err := h.invoices.List()
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to retrieve invoices")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// CreateInvoice handles POST /api/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	invoiceDate, err := time.Parse(dateLayout, req.InvoiceDate)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "invoice_date must be YYYY-MM-DD")
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateDocumentNumber(req.InvoiceNumber); err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	inv := &models.Invoice{
		CustomerName:    utils.SanitizeString(req.CustomerName),
		InvoiceDate:     invoiceDate,
		DueDate:         dueDate,
		InvoiceNumber:   req.InvoiceNumber,
		LineDescription: utils.SanitizeString(req.Description),
		Amount:          amount,
		TaxCode:         req.TaxCode,
	}

	if err := h.invoices.Create(inv); err != nil {
		if errors.Is(err, repository.ErrDuplicateNumber) {
			h.fail(c, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Failed to create invoice", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to create invoice")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// UploadInvoice handles POST /api/invoices/:id/upload
func (h *Handlers) UploadInvoice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	inv, err := h.invoices.GetByID(id)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve invoice")
		return
	}
	if inv == nil {
		h.fail(c, http.StatusNotFound, "invoice not found")
		return
	}

	auth, ok := h.authFor(c)
	if !ok {
		return
	}

	outcome := h.uploader.UploadInvoice(c.Request.Context(), inv, auth)
	c.JSON(http.StatusOK, Response{
		Success: outcome.Status == sync.StatusSuccess,
		Data:    outcome,
	})
}

// ListBills handles GET /api/bills
func (h *Handlers) ListBills(c *gin.Context) {
	bills, err := h.bills.List()
	if err != nil {
		h.logger.Error("Failed to list bills", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to retrieve bills")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: bills})
}

// CreateBill handles POST /api/bills
func (h *Handlers) CreateBill(c *gin.Context) {
	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	billDate, err := time.Parse(dateLayout, req.BillDate)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "bill_date must be YYYY-MM-DD")
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateDocumentNumber(req.BillNumber); err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	b := &models.Bill{
		VendorName:      utils.SanitizeString(req.VendorName),
		BillDate:        billDate,
		DueDate:         dueDate,
		BillNumber:      req.BillNumber,
		LineDescription: utils.SanitizeString(req.Description),
		Amount:          amount,
		ExpenseAccount:  utils.SanitizeString(req.ExpenseAccount),
	}

	if err := h.bills.Create(b); err != nil {
		if errors.Is(err, repository.ErrDuplicateNumber) {
			h.fail(c, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Failed to create bill", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to create bill")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: b})
}

// UploadBill handles POST /api/bills/:id/upload
func (h *Handlers) UploadBill(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "invalid bill id")
		return
	}

	b, err := h.bills.GetByID(id)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve bill")
		return
	}
	if b == nil {
		h.fail(c, http.StatusNotFound, "bill not found")
		return
	}

	auth, ok := h.authFor(c)
	if !ok {
		return
	}

	outcome := h.uploader.UploadBill(c.Request.Context(), b, auth)
	c.JSON(http.StatusOK, Response{
		Success: outcome.Status == sync.StatusSuccess,
		Data:    outcome,
	})
}

// UploadAll handles POST /api/upload-all. Every pending invoice is
// attempted first, then every pending bill; the response reports each
// record individually.
func (h *Handlers) UploadAll(c *gin.Context) {
	auth, ok := h.authFor(c)
	if !ok {
		return
	}

	invoices, err := h.invoices.ListPending()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve pending invoices")
		return
	}
	bills, err := h.bills.ListPending()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve pending bills")
		return
	}

	if len(invoices) == 0 && len(bills) == 0 {
		c.JSON(http.StatusOK, Response{
			Success: true,
			Message: "No pending invoices or bills to upload",
		})
		return
	}

	report := h.uploader.UploadAll(c.Request.Context(), invoices, bills, auth)
	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// UploadStatus handles GET /api/upload-status
func (h *Handlers) UploadStatus(c *gin.Context) {
	invoices, err := h.invoices.List()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve invoices")
		return
	}
	bills, err := h.bills.List()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve bills")
		return
	}

	status := UploadStatusResponse{
		Invoices: make([]RecordStatus, 0, len(invoices)),
		Bills:    make([]RecordStatus, 0, len(bills)),
	}
	for _, inv := range invoices {
		status.Invoices = append(status.Invoices, RecordStatus{
			ID:             inv.ID,
			DocumentNumber: inv.InvoiceNumber,
			Counterparty:   inv.CustomerName,
			Amount:         inv.Amount.InexactFloat64(),
			Uploaded:       inv.Uploaded(),
			QuickBooksID:   inv.QuickBooksID,
			UploadError:    inv.UploadError,
		})
	}
	for _, b := range bills {
		status.Bills = append(status.Bills, RecordStatus{
			ID:             b.ID,
			DocumentNumber: b.BillNumber,
			Counterparty:   b.VendorName,
			Amount:         b.Amount.InexactFloat64(),
			Uploaded:       b.Uploaded(),
			QuickBooksID:   b.QuickBooksID,
			UploadError:    b.UploadError,
		})
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// Statistics handles GET /api/statistics
func (h *Handlers) Statistics(c *gin.Context) {
	stats, err := h.uploader.Statistics()
	if err != nil {
		h.logger.Error("Failed to compute statistics", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ImportWorkbook handles POST /api/import (multipart form, field "file")
func (h *Handlers) ImportWorkbook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "missing file upload")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "failed to open uploaded file")
		return
	}
	defer f.Close()

	result, err := h.importer.ImportWorkbook(f)
	if err != nil {
		h.logger.Error("Workbook import failed", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "failed to parse workbook")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// authFor loads the stored QuickBooks credential, refreshing it when
// expired. Writes the error response itself when no usable credential
// exists.
func (h *Handlers) authFor(c *gin.Context) (quickbooks.Auth, bool) {
	token, err := h.tokens.Get()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to load stored credentials")
		return quickbooks.Auth{}, false
	}
	if token == nil {
		h.fail(c, http.StatusUnauthorized, "QuickBooks is not connected")
		return quickbooks.Auth{}, false
	}

	if token.IsExpired() {
		refreshed, err := h.oauth.Refresh(c.Request.Context(), token.RefreshToken)
		if err != nil {
			h.logger.Error("Token refresh failed", zap.Error(err))
			h.fail(c, http.StatusUnauthorized, "QuickBooks session expired; reconnect required")
			return quickbooks.Auth{}, false
		}

		token.AccessToken = refreshed.AccessToken
		if refreshed.RefreshToken != "" {
			token.RefreshToken = refreshed.RefreshToken
		}
		if !refreshed.Expiry.IsZero() {
			expiry := refreshed.Expiry
			token.ExpiresAt = &expiry
		}
		if err := h.tokens.Save(token); err != nil {
			h.logger.Error("Failed to persist refreshed token", zap.Error(err))
		}
	}

	return quickbooks.Auth{AccessToken: token.AccessToken, RealmID: token.RealmID}, true
}

func (h *Handlers) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, errors.New("amount must be a number")
	}
	if err := utils.ValidateAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}
	return amount, nil
}

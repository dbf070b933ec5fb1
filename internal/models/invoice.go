package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice represents an accounts receivable document (customer invoice)
// entered locally and pushed to QuickBooks Online during bulk upload.
type Invoice struct {
	ID              int64           `json:"id"`
	CustomerName    string          `json:"customer_name"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date"`
	InvoiceNumber   string          `json:"invoice_number"` // unique within invoices
	LineDescription string          `json:"line_description"`
	Amount          decimal.Decimal `json:"amount"`
	TaxCode         string          `json:"tax_code"`

	// QuickBooks sync state. QuickBooksID and UploadError are written by the
	// bulk uploader only; a failed attempt does not clear a previously
	// earned QuickBooksID.
	QuickBooksID *string    `json:"quickbooks_id"`
	UploadError  *string    `json:"upload_error"`
	UploadedAt   *time.Time `json:"uploaded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Uploaded reports whether the invoice has been accepted by QuickBooks.
func (i *Invoice) Uploaded() bool {
	return i.QuickBooksID != nil
}

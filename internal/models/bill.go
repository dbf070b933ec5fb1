package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill represents an accounts payable document (vendor bill) entered
// locally and pushed to QuickBooks Online during bulk upload.
type Bill struct {
	ID              int64           `json:"id"`
	VendorName      string          `json:"vendor_name"`
	BillDate        time.Time       `json:"bill_date"`
	DueDate         *time.Time      `json:"due_date"`
	BillNumber      string          `json:"bill_number"` // unique within bills
	LineDescription string          `json:"line_description"`
	Amount          decimal.Decimal `json:"amount"`
	ExpenseAccount  string          `json:"expense_account"`

	// QuickBooks sync state, maintained by the bulk uploader.
	QuickBooksID *string    `json:"quickbooks_id"`
	UploadError  *string    `json:"upload_error"`
	UploadedAt   *time.Time `json:"uploaded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Uploaded reports whether the bill has been accepted by QuickBooks.
func (b *Bill) Uploaded() bool {
	return b.QuickBooksID != nil
}

// Package sync implements the bulk synchronization engine: it pushes
// batches of locally entered invoices and bills to QuickBooks Online and
// records a durable per-record outcome. The engine is best-effort: one
// record's failure never aborts the rest of the batch, and a batch is
// never a transaction.
package sync

import "time"

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const successMessage = "Successfully uploaded to QuickBooks"

// Outcome is the result of one document's upload attempt. Exactly one
// branch is populated: QuickBooksID on success, Error on failure.
type Outcome struct {
	Status       string  `json:"status"`
	QuickBooksID *string `json:"quickbooks_id,omitempty"`
	Message      string  `json:"message"`
	Error        string  `json:"error,omitempty"`
}

// Detail is an Outcome with the identifying fields of the record echoed,
// so the report reads without a second lookup.
type Detail struct {
	ID             int64   `json:"id"`
	DocumentNumber string  `json:"document_number"`
	Counterparty   string  `json:"counterparty"`
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"`
	QuickBooksID   *string `json:"quickbooks_id"`
	Message        string  `json:"message"`
	Error          string  `json:"error,omitempty"`
}

// VariantReport aggregates the outcomes for one document variant.
type VariantReport struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Details    []Detail `json:"details"`
}

// Summary totals a finished batch.
type Summary struct {
	TotalProcessed  int       `json:"total_processed"`
	TotalSuccessful int       `json:"total_successful"`
	TotalFailed     int       `json:"total_failed"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}

// BatchReport is the full result of one bulk upload run. It is built
// incrementally while the batch runs and immutable once returned.
type BatchReport struct {
	BatchID  string        `json:"batch_id"`
	Invoices VariantReport `json:"invoices"`
	Bills    VariantReport `json:"bills"`
	Summary  Summary       `json:"summary"`
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/models"
)

// ErrDuplicateNumber is returned when an insert violates the per-variant
// document number uniqueness constraint.
var ErrDuplicateNumber = errors.New("document number already exists")

const invoiceColumns = `id, customer_name, invoice_date, due_date, invoice_number,
		line_description, amount, tax_code, quickbooks_id, upload_error,
		uploaded_at, created_at, updated_at`

// InvoiceRepository handles invoice database operations.
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

// Create inserts a new invoice. A duplicate invoice number is rejected
// with ErrDuplicateNumber before the record can ever reach the uploader.
func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			customer_name, invoice_date, due_date, invoice_number,
			line_description, amount, tax_code
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		inv.CustomerName,
		inv.InvoiceDate,
		inv.DueDate,
		inv.InvoiceNumber,
		inv.LineDescription,
		inv.Amount.String(),
		nullableString(inv.TaxCode),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, ErrDuplicateNumber)
		}
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	inv.ID = id
	return nil
}

// GetByID retrieves an invoice by id. Returns nil without error when the
// invoice does not exist.
func (r *InvoiceRepository) GetByID(id int64) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	inv, err := scanInvoice(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// List returns all invoices in insertion order.
func (r *InvoiceRepository) List() ([]*models.Invoice, error) {
	return r.queryInvoices(`SELECT ` + invoiceColumns + ` FROM invoices ORDER BY id`)
}

// ListPending returns invoices not yet uploaded to QuickBooks, in
// insertion order.
func (r *InvoiceRepository) ListPending() ([]*models.Invoice, error) {
	return r.queryInvoices(`SELECT ` + invoiceColumns + ` FROM invoices WHERE quickbooks_id IS NULL ORDER BY id`)
}

// UpdateSyncState persists the invoice's QuickBooks sync fields. Only the
// sync state is written; the bookkeeping fields stay untouched.
func (r *InvoiceRepository) UpdateSyncState(inv *models.Invoice) error {
	query := `
		UPDATE invoices
		SET quickbooks_id = ?, upload_error = ?, uploaded_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.Exec(query, inv.QuickBooksID, inv.UploadError, inv.UploadedAt, inv.ID); err != nil {
		r.logger.Error("Failed to update invoice sync state",
			zap.Int64("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to update invoice sync state: %w", err)
	}
	return nil
}

// Stats counts upload progress over all invoices.
func (r *InvoiceRepository) Stats() (models.VariantStats, error) {
	query := `
		SELECT COUNT(*), COUNT(quickbooks_id), COUNT(upload_error)
		FROM invoices
	`

	var stats models.VariantStats
	if err := r.db.QueryRow(query).Scan(&stats.Total, &stats.Uploaded, &stats.Failed); err != nil {
		r.logger.Error("Failed to count invoices", zap.Error(err))
		return models.VariantStats{}, fmt.Errorf("failed to count invoices: %w", err)
	}
	stats.Pending = stats.Total - stats.Uploaded
	return stats, nil
}

func (r *InvoiceRepository) queryInvoices(query string, args ...interface{}) ([]*models.Invoice, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to query invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		inv          models.Invoice
		dueDate      sql.NullTime
		amount       string
		taxCode      sql.NullString
		quickbooksID sql.NullString
		uploadError  sql.NullString
		uploadedAt   sql.NullTime
	)

	err := row.Scan(
		&inv.ID,
		&inv.CustomerName,
		&inv.InvoiceDate,
		&dueDate,
		&inv.InvoiceNumber,
		&inv.LineDescription,
		&amount,
		&taxCode,
		&quickbooksID,
		&uploadError,
		&uploadedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	inv.Amount = parsed

	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	if taxCode.Valid {
		inv.TaxCode = taxCode.String
	}
	if quickbooksID.Valid {
		inv.QuickBooksID = &quickbooksID.String
	}
	if uploadError.Valid {
		inv.UploadError = &uploadError.String
	}
	if uploadedAt.Valid {
		inv.UploadedAt = &uploadedAt.Time
	}

	return &inv, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

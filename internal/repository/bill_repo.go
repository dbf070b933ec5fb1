package repository

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/models"
)

const billColumns = `id, vendor_name, bill_date, due_date, bill_number,
		line_description, amount, expense_account, quickbooks_id,
		upload_error, uploaded_at, created_at, updated_at`

// BillRepository handles bill database operations.
type BillRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBillRepository creates a new bill repository.
func NewBillRepository(db *sql.DB, logger *zap.Logger) *BillRepository {
	return &BillRepository{db: db, logger: logger}
}

// Create inserts a new bill. A duplicate bill number is rejected with
// ErrDuplicateNumber.
func (r *BillRepository) Create(b *models.Bill) error {
	query := `
		INSERT INTO bills (
			vendor_name, bill_date, due_date, bill_number,
			line_description, amount, expense_account
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		b.VendorName,
		b.BillDate,
		b.DueDate,
		b.BillNumber,
		b.LineDescription,
		b.Amount.String(),
		b.ExpenseAccount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("bill %s: %w", b.BillNumber, ErrDuplicateNumber)
		}
		r.logger.Error("Failed to create bill", zap.Error(err))
		return fmt.Errorf("failed to create bill: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	b.ID = id
	return nil
}

// GetByID retrieves a bill by id. Returns nil without error when the bill
// does not exist.
func (r *BillRepository) GetByID(id int64) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

	b, err := scanBill(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get bill", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return b, nil
}

// List returns all bills in insertion order.
func (r *BillRepository) List() ([]*models.Bill, error) {
	return r.queryBills(`SELECT ` + billColumns + ` FROM bills ORDER BY id`)
}

// ListPending returns bills not yet uploaded to QuickBooks, in insertion
// order.
func (r *BillRepository) ListPending() ([]*models.Bill, error) {
	return r.queryBills(`SELECT ` + billColumns + ` FROM bills WHERE quickbooks_id IS NULL ORDER BY id`)
}

// UpdateSyncState persists the bill's QuickBooks sync fields.
func (r *BillRepository) UpdateSyncState(b *models.Bill) error {
	query := `
		UPDATE bills
		SET quickbooks_id = ?, upload_error = ?, uploaded_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.Exec(query, b.QuickBooksID, b.UploadError, b.UploadedAt, b.ID); err != nil {
		r.logger.Error("Failed to update bill sync state",
			zap.Int64("id", b.ID), zap.Error(err))
		return fmt.Errorf("failed to update bill sync state: %w", err)
	}
	return nil
}

// Stats counts upload progress over all bills.
func (r *BillRepository) Stats() (models.VariantStats, error) {
	query := `
		SELECT COUNT(*), COUNT(quickbooks_id), COUNT(upload_error)
		FROM bills
	`

	var stats models.VariantStats
	if err := r.db.QueryRow(query).Scan(&stats.Total, &stats.Uploaded, &stats.Failed); err != nil {
		r.logger.Error("Failed to count bills", zap.Error(err))
		return models.VariantStats{}, fmt.Errorf("failed to count bills: %w", err)
	}
	stats.Pending = stats.Total - stats.Uploaded
	return stats, nil
}

func (r *BillRepository) queryBills(query string, args ...interface{}) ([]*models.Bill, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to query bills", zap.Error(err))
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func scanBill(row rowScanner) (*models.Bill, error) {
	var (
		b            models.Bill
		dueDate      sql.NullTime
		amount       string
		quickbooksID sql.NullString
		uploadError  sql.NullString
		uploadedAt   sql.NullTime
	)

	err := row.Scan(
		&b.ID,
		&b.VendorName,
		&b.BillDate,
		&dueDate,
		&b.BillNumber,
		&b.LineDescription,
		&amount,
		&b.ExpenseAccount,
		&quickbooksID,
		&uploadError,
		&uploadedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	b.Amount = parsed

	if dueDate.Valid {
		b.DueDate = &dueDate.Time
	}
	if quickbooksID.Valid {
		b.QuickBooksID = &quickbooksID.String
	}
	if uploadError.Valid {
		b.UploadError = &uploadError.String
	}
	if uploadedAt.Valid {
		b.UploadedAt = &uploadedAt.Time
	}

	return &b, nil
}

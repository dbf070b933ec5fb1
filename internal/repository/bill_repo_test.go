package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/models"
)

func testBill(number string) *models.Bill {
	return &models.Bill{
		VendorName:      "Supplies Inc",
		BillDate:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		BillNumber:      number,
		LineDescription: "Printer paper",
		Amount:          decimal.RequireFromString("89.99"),
		ExpenseAccount:  "Office Expenses",
	}
}

func TestBillRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewBillRepository(db.DB, zap.NewNop())

	b := testBill("BILL-001")
	require.NoError(t, repo.Create(b))
	assert.NotZero(t, b.ID)

	got, err := repo.GetByID(b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Supplies Inc", got.VendorName)
	assert.Equal(t, "Office Expenses", got.ExpenseAccount)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("89.99")))
	assert.False(t, got.Uploaded())
}

func TestBillRepository_DuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewBillRepository(db.DB, zap.NewNop())

	require.NoError(t, repo.Create(testBill("BILL-001")))

	err := repo.Create(testBill("BILL-001"))
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestBillRepository_NumbersIndependentFromInvoices(t *testing.T) {
	db := newTestDB(t)
	billRepo := NewBillRepository(db.DB, zap.NewNop())
	invoiceRepo := NewInvoiceRepository(db.DB, zap.NewNop())

	// The same document number may exist once per variant.
	require.NoError(t, invoiceRepo.Create(testInvoice("DOC-1")))
	require.NoError(t, billRepo.Create(testBill("DOC-1")))
}

func TestBillRepository_ListPendingAndSyncState(t *testing.T) {
	db := newTestDB(t)
	repo := NewBillRepository(db.DB, zap.NewNop())

	first := testBill("BILL-001")
	second := testBill("BILL-002")
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	qbID := "qb-9"
	now := time.Now().UTC()
	first.QuickBooksID = &qbID
	first.UploadedAt = &now
	require.NoError(t, repo.UpdateSyncState(first))

	pending, err := repo.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "BILL-002", pending[0].BillNumber)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Uploaded)
	assert.Equal(t, int64(1), stats.Pending)
}

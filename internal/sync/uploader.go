package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/models"
	"github.com/waiyanhtun/booksync/internal/quickbooks"
)

// DocumentCreator is the QuickBooks surface the uploader depends on.
type DocumentCreator interface {
	CreateInvoice(ctx context.Context, auth quickbooks.Auth, payload quickbooks.InvoicePayload) (string, error)
	CreateBill(ctx context.Context, auth quickbooks.Auth, payload quickbooks.BillPayload) (string, error)
}

// InvoiceStore is the slice of the invoice repository the uploader touches.
type InvoiceStore interface {
	UpdateSyncState(inv *models.Invoice) error
	Stats() (models.VariantStats, error)
}

// BillStore is the slice of the bill repository the uploader touches.
type BillStore interface {
	UpdateSyncState(b *models.Bill) error
	Stats() (models.VariantStats, error)
}

// Uploader pushes batches of local invoices and bills to QuickBooks,
// one document at a time in input order, recording each record's outcome
// in the store immediately after its own attempt.
type Uploader struct {
	qb       DocumentCreator
	invoices InvoiceStore
	bills    BillStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploader creates a bulk uploader.
func NewUploader(qb DocumentCreator, invoices InvoiceStore, bills BillStore, logger *zap.Logger) *Uploader {
	return &Uploader{
		qb:       qb,
		invoices: invoices,
		bills:    bills,
		logger:   logger,
		now:      time.Now,
	}
}

// UploadAll uploads every given invoice, then every given bill. An empty
// variant list is skipped without contacting QuickBooks. The returned
// report always covers every input record; the error surface is embedded
// per record, never propagated.
func (u *Uploader) UploadAll(ctx context.Context, invoices []*models.Invoice, bills []*models.Bill, auth quickbooks.Auth) *BatchReport {
	report := &BatchReport{
		BatchID:  uuid.NewString(),
		Invoices: VariantReport{Total: len(invoices)},
		Bills:    VariantReport{Total: len(bills)},
	}

	if len(invoices) > 0 {
		u.logger.Info("starting bulk invoice upload",
			zap.String("batch_id", report.BatchID),
			zap.Int("count", len(invoices)))
		report.Invoices = u.uploadInvoices(ctx, invoices, auth)
	}

	if len(bills) > 0 {
		u.logger.Info("starting bulk bill upload",
			zap.String("batch_id", report.BatchID),
			zap.Int("count", len(bills)))
		report.Bills = u.uploadBills(ctx, bills, auth)
	}

	report.Summary = Summary{
		TotalProcessed:  len(invoices) + len(bills),
		TotalSuccessful: report.Invoices.Successful + report.Bills.Successful,
		TotalFailed:     report.Invoices.Failed + report.Bills.Failed,
		UploadTimestamp: u.now().UTC(),
	}

	u.logger.Info("bulk upload completed",
		zap.String("batch_id", report.BatchID),
		zap.Int("successful", report.Summary.TotalSuccessful),
		zap.Int("failed", report.Summary.TotalFailed),
		zap.Int("total", report.Summary.TotalProcessed))

	return report
}

// UploadInvoice uploads a single invoice, persisting its new sync state.
// Re-running it on an already-uploaded invoice re-attempts and may
// overwrite the QuickBooks id with a fresh one.
func (u *Uploader) UploadInvoice(ctx context.Context, inv *models.Invoice, auth quickbooks.Auth) Outcome {
	outcome := u.attemptInvoice(ctx, inv, auth)
	applyInvoiceOutcome(inv, outcome, u.now().UTC())
	if err := u.invoices.UpdateSyncState(inv); err != nil {
		u.logger.Error("failed to persist invoice sync state",
			zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
	}
	return outcome
}

// UploadBill uploads a single bill, persisting its new sync state.
func (u *Uploader) UploadBill(ctx context.Context, b *models.Bill, auth quickbooks.Auth) Outcome {
	outcome := u.attemptBill(ctx, b, auth)
	applyBillOutcome(b, outcome, u.now().UTC())
	if err := u.bills.UpdateSyncState(b); err != nil {
		u.logger.Error("failed to persist bill sync state",
			zap.String("bill_number", b.BillNumber), zap.Error(err))
	}
	return outcome
}

// Statistics reports upload progress from persisted state only; no remote
// calls are made.
func (u *Uploader) Statistics() (*models.UploadStatistics, error) {
	invoiceStats, err := u.invoices.Stats()
	if err != nil {
		return nil, err
	}
	billStats, err := u.bills.Stats()
	if err != nil {
		return nil, err
	}

	return &models.UploadStatistics{
		Invoices: invoiceStats,
		Bills:    billStats,
		Overall: models.VariantStats{
			Total:    invoiceStats.Total + billStats.Total,
			Uploaded: invoiceStats.Uploaded + billStats.Uploaded,
			Pending:  invoiceStats.Pending + billStats.Pending,
			Failed:   invoiceStats.Failed + billStats.Failed,
		},
	}, nil
}

func (u *Uploader) uploadInvoices(ctx context.Context, invoices []*models.Invoice, auth quickbooks.Auth) VariantReport {
	result := VariantReport{Total: len(invoices)}

	for _, inv := range invoices {
		outcome := u.attemptInvoice(ctx, inv, auth)
		applyInvoiceOutcome(inv, outcome, u.now().UTC())

		if outcome.Status == StatusSuccess {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Details = append(result.Details, Detail{
			ID:             inv.ID,
			DocumentNumber: inv.InvoiceNumber,
			Counterparty:   inv.CustomerName,
			Amount:         inv.Amount.InexactFloat64(),
			Status:         outcome.Status,
			QuickBooksID:   outcome.QuickBooksID,
			Message:        outcome.Message,
			Error:          outcome.Error,
		})

		// Commit this record's state before moving on; a commit failure
		// must not abort the batch or touch the report.
		if err := u.invoices.UpdateSyncState(inv); err != nil {
			u.logger.Error("failed to persist invoice sync state",
				zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		}
	}

	return result
}

func (u *Uploader) uploadBills(ctx context.Context, bills []*models.Bill, auth quickbooks.Auth) VariantReport {
	result := VariantReport{Total: len(bills)}

	for _, b := range bills {
		outcome := u.attemptBill(ctx, b, auth)
		applyBillOutcome(b, outcome, u.now().UTC())

		if outcome.Status == StatusSuccess {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Details = append(result.Details, Detail{
			ID:             b.ID,
			DocumentNumber: b.BillNumber,
			Counterparty:   b.VendorName,
			Amount:         b.Amount.InexactFloat64(),
			Status:         outcome.Status,
			QuickBooksID:   outcome.QuickBooksID,
			Message:        outcome.Message,
			Error:          outcome.Error,
		})

		if err := u.bills.UpdateSyncState(b); err != nil {
			u.logger.Error("failed to persist bill sync state",
				zap.String("bill_number", b.BillNumber), zap.Error(err))
		}
	}

	return result
}

// attemptInvoice computes the outcome of one upload attempt without
// mutating the record or the store.
func (u *Uploader) attemptInvoice(ctx context.Context, inv *models.Invoice, auth quickbooks.Auth) Outcome {
	payload := quickbooks.InvoicePayloadFrom(inv)

	id, err := u.qb.CreateInvoice(ctx, auth, payload)
	if err != nil {
		u.logger.Error("failed to upload invoice",
			zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		return failedOutcome(err)
	}

	u.logger.Info("uploaded invoice",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("quickbooks_id", id))
	return Outcome{Status: StatusSuccess, QuickBooksID: &id, Message: successMessage}
}

// attemptBill computes the outcome of one upload attempt without mutating
// the record or the store.
func (u *Uploader) attemptBill(ctx context.Context, b *models.Bill, auth quickbooks.Auth) Outcome {
	payload := quickbooks.BillPayloadFrom(b)

	id, err := u.qb.CreateBill(ctx, auth, payload)
	if err != nil {
		u.logger.Error("failed to upload bill",
			zap.String("bill_number", b.BillNumber), zap.Error(err))
		return failedOutcome(err)
	}

	u.logger.Info("uploaded bill",
		zap.String("bill_number", b.BillNumber),
		zap.String("quickbooks_id", id))
	return Outcome{Status: StatusSuccess, QuickBooksID: &id, Message: successMessage}
}

func failedOutcome(err error) Outcome {
	return Outcome{
		Status:  StatusFailed,
		Message: "Upload failed: " + err.Error(),
		Error:   err.Error(),
	}
}

// applyInvoiceOutcome is the single point where an upload attempt mutates
// the record. A failure leaves any previously earned QuickBooks id intact.
func applyInvoiceOutcome(inv *models.Invoice, o Outcome, now time.Time) {
	if o.Status == StatusSuccess {
		inv.QuickBooksID = o.QuickBooksID
		inv.UploadedAt = &now
		inv.UploadError = nil
		return
	}
	errMsg := o.Error
	inv.UploadError = &errMsg
}

// applyBillOutcome mirrors applyInvoiceOutcome for bills.
func applyBillOutcome(b *models.Bill, o Outcome, now time.Time) {
	if o.Status == StatusSuccess {
		b.QuickBooksID = o.QuickBooksID
		b.UploadedAt = &now
		b.UploadError = nil
		return
	}
	errMsg := o.Error
	b.UploadError = &errMsg
}

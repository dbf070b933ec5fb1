// Package importer loads bookkeeping spreadsheets into the local record
// store. Each row is inserted independently; a bad or duplicate row is
// reported and the import continues.
package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/models"
	"github.com/waiyanhtun/booksync/pkg/utils"
)

const (
	invoiceSheet = "Invoices"
	billSheet    = "Bills"

	dateLayout = "2006-01-02"
)

// InvoiceCreator is the slice of the invoice repository the importer needs.
type InvoiceCreator interface {
	Create(inv *models.Invoice) error
}

// BillCreator is the slice of the bill repository the importer needs.
type BillCreator interface {
	Create(b *models.Bill) error
}

// RowError reports one rejected spreadsheet row.
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result summarizes an import run.
type Result struct {
	InvoicesImported int        `json:"invoices_imported"`
	BillsImported    int        `json:"bills_imported"`
	Errors           []RowError `json:"errors,omitempty"`
}

// Importer parses .xlsx workbooks with "Invoices" and "Bills" sheets.
type Importer struct {
	invoices InvoiceCreator
	bills    BillCreator
	logger   *zap.Logger
}

// New creates an importer.
func New(invoices InvoiceCreator, bills BillCreator, logger *zap.Logger) *Importer {
	return &Importer{
		invoices: invoices,
		bills:    bills,
		logger:   logger,
	}
}

// ImportWorkbook reads a workbook and inserts its rows. A missing sheet is
// skipped; the first row of each sheet is treated as a header.
func (imp *Importer) ImportWorkbook(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result := &Result{}
	imp.importInvoices(f, result)
	imp.importBills(f, result)

	imp.logger.Info("workbook import completed",
		zap.Int("invoices", result.InvoicesImported),
		zap.Int("bills", result.BillsImported),
		zap.Int("rejected_rows", len(result.Errors)))

	return result, nil
}

// Invoice sheet columns: Customer | Invoice Date | Due Date | Number |
// Description | Amount | Tax Code.
func (imp *Importer) importInvoices(f *excelize.File, result *Result) {
	rows, ok := sheetRows(f, invoiceSheet)
	if !ok {
		return
	}

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		inv, err := parseInvoiceRow(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Sheet: invoiceSheet, Row: rowNum, Message: err.Error()})
			continue
		}
		if err := imp.invoices.Create(inv); err != nil {
			result.Errors = append(result.Errors, RowError{Sheet: invoiceSheet, Row: rowNum, Message: err.Error()})
			continue
		}
		result.InvoicesImported++
	}
}

// Bill sheet columns: Vendor | Bill Date | Due Date | Number |
// Description | Amount | Expense Account.
func (imp *Importer) importBills(f *excelize.File, result *Result) {
	rows, ok := sheetRows(f, billSheet)
	if !ok {
		return
	}

	for i, row := range rows[1:] {
		rowNum := i + 2

		b, err := parseBillRow(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Sheet: billSheet, Row: rowNum, Message: err.Error()})
			continue
		}
		if err := imp.bills.Create(b); err != nil {
			result.Errors = append(result.Errors, RowError{Sheet: billSheet, Row: rowNum, Message: err.Error()})
			continue
		}
		result.BillsImported++
	}
}

func sheetRows(f *excelize.File, sheet string) ([][]string, bool) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, false
	}
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return nil, false
	}
	return rows, true
}

func parseInvoiceRow(row []string) (*models.Invoice, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("expected at least 6 columns, got %d", len(row))
	}

	invoiceDate, err := time.Parse(dateLayout, row[1])
	if err != nil {
		return nil, fmt.Errorf("invalid invoice date %q", row[1])
	}
	dueDate, err := optionalDate(row[2])
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(row[5])
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateDocumentNumber(row[3]); err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		CustomerName:    utils.SanitizeString(row[0]),
		InvoiceDate:     invoiceDate,
		DueDate:         dueDate,
		InvoiceNumber:   row[3],
		LineDescription: utils.SanitizeString(row[4]),
		Amount:          amount,
	}
	if len(row) > 6 {
		inv.TaxCode = row[6]
	}
	return inv, nil
}

func parseBillRow(row []string) (*models.Bill, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("expected at least 7 columns, got %d", len(row))
	}

	billDate, err := time.Parse(dateLayout, row[1])
	if err != nil {
		return nil, fmt.Errorf("invalid bill date %q", row[1])
	}
	dueDate, err := optionalDate(row[2])
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(row[5])
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateDocumentNumber(row[3]); err != nil {
		return nil, err
	}
	if row[6] == "" {
		return nil, fmt.Errorf("expense account is required")
	}

	return &models.Bill{
		VendorName:      utils.SanitizeString(row[0]),
		BillDate:        billDate,
		DueDate:         dueDate,
		BillNumber:      row[3],
		LineDescription: utils.SanitizeString(row[4]),
		Amount:          amount,
		ExpenseAccount:  utils.SanitizeString(row[6]),
	}, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q", s)
	}
	return &t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	if err := utils.ValidateAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}
	return amount, nil
}

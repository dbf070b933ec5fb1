package quickbooks

import (
	"time"

	"github.com/waiyanhtun/booksync/internal/models"
)

const (
	detailTypeSalesItem      = "SalesItemLineDetail"
	detailTypeAccountExpense = "AccountBasedExpenseLineDetail"

	// Every invoice line bills against the generic "Services" item.
	defaultItemValue = "1"
	defaultItemName  = "Services"

	// QuickBooks tax code used when the local record carries none.
	defaultTaxCode = "NON"
)

// InvoicePayloadFrom maps a local invoice to the QuickBooks invoice schema.
// Pure translation: the customer ref carries the name only and is resolved
// to an id by the client before submission.
func InvoicePayloadFrom(inv *models.Invoice) InvoicePayload {
	taxCode := inv.TaxCode
	if taxCode == "" {
		taxCode = defaultTaxCode
	}

	return InvoicePayload{
		Line: []Line{{
			Amount:     inv.Amount.InexactFloat64(),
			DetailType: detailTypeSalesItem,
			SalesItemLineDetail: &SalesItemLineDetail{
				ItemRef:    EntityRef{Value: defaultItemValue, Name: defaultItemName},
				TaxCodeRef: EntityRef{Value: taxCode},
			},
			Description: inv.LineDescription,
		}},
		CustomerRef: EntityRef{Name: inv.CustomerName},
		DocNumber:   inv.InvoiceNumber,
		TxnDate:     calendarDate(&inv.InvoiceDate),
		DueDate:     calendarDate(inv.DueDate),
	}
}

// BillPayloadFrom maps a local bill to the QuickBooks bill schema. The
// vendor and expense account refs carry names only.
func BillPayloadFrom(b *models.Bill) BillPayload {
	return BillPayload{
		Line: []Line{{
			Amount:     b.Amount.InexactFloat64(),
			DetailType: detailTypeAccountExpense,
			AccountBasedExpenseLineDetail: &AccountBasedExpenseLineDetail{
				AccountRef: EntityRef{Name: b.ExpenseAccount},
			},
			Description: b.LineDescription,
		}},
		VendorRef: EntityRef{Name: b.VendorName},
		DocNumber: b.BillNumber,
		TxnDate:   calendarDate(&b.BillDate),
		DueDate:   calendarDate(b.DueDate),
	}
}

// calendarDate formats a timestamp as an ISO 8601 calendar date, the only
// date form the QuickBooks document endpoints accept. Nil stays nil and
// marshals to JSON null.
func calendarDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

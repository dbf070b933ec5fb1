package quickbooks

import "encoding/json"

// Auth carries the bearer credential and company (realm) id that scope
// every QuickBooks API call. It is obtained by the OAuth flow and passed
// by the caller; the client never refreshes it.
type Auth struct {
	AccessToken string
	RealmID     string
}

// EntityRef identifies a customer, vendor, account, item or tax code on the
// QuickBooks side. A ref produced by the translator carries a name only;
// the client rewrites it to an id before submission.
type EntityRef struct {
	Value string `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SalesItemLineDetail is the line detail of an invoice line.
type SalesItemLineDetail struct {
	ItemRef    EntityRef `json:"ItemRef"`
	TaxCodeRef EntityRef `json:"TaxCodeRef"`
}

// AccountBasedExpenseLineDetail is the line detail of a bill line.
type AccountBasedExpenseLineDetail struct {
	AccountRef EntityRef `json:"AccountRef"`
}

// Line is a single document line. Exactly one of the detail structs is set,
// matching DetailType.
type Line struct {
	Amount                        float64                        `json:"Amount"`
	DetailType                    string                         `json:"DetailType"`
	SalesItemLineDetail           *SalesItemLineDetail           `json:"SalesItemLineDetail,omitempty"`
	AccountBasedExpenseLineDetail *AccountBasedExpenseLineDetail `json:"AccountBasedExpenseLineDetail,omitempty"`
	Description                   string                         `json:"Description"`
}

// InvoicePayload is the QuickBooks v3 invoice creation body.
// TxnDate and DueDate are calendar dates; nil marshals to null.
type InvoicePayload struct {
	Line        []Line    `json:"Line"`
	CustomerRef EntityRef `json:"CustomerRef"`
	DocNumber   string    `json:"DocNumber"`
	TxnDate     *string   `json:"TxnDate"`
	DueDate     *string   `json:"DueDate"`
}

// BillPayload is the QuickBooks v3 bill creation body.
type BillPayload struct {
	Line      []Line    `json:"Line"`
	VendorRef EntityRef `json:"VendorRef"`
	DocNumber string    `json:"DocNumber"`
	TxnDate   *string   `json:"TxnDate"`
	DueDate   *string   `json:"DueDate"`
}

// Entity is the subset of a created or queried QuickBooks object the
// application cares about.
type Entity struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	CompanyName string `json:"CompanyName"`
}

// envelope is a partially decoded QuickBooks response body. The platform
// wraps objects either under a QueryResponse key or directly under the
// object's type name.
type envelope map[string]json.RawMessage

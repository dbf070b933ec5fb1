package quickbooks

import "fmt"

// Cause classifies why a QuickBooks API call failed. The bulk uploader
// treats every cause the same way; they stay distinct for logs and tests.
type Cause string

const (
	CauseTimeout    Cause = "timeout"
	CauseTransport  Cause = "transport"
	CauseHTTPStatus Cause = "http_status"
	CauseDecode     Cause = "decode"
)

// APIError is the single error kind the client surfaces for a failed call.
type APIError struct {
	Cause      Cause
	Op         string // e.g. "create invoice"
	StatusCode int    // set when Cause is CauseHTTPStatus
	Err        error
}

func (e *APIError) Error() string {
	switch e.Cause {
	case CauseTimeout:
		return fmt.Sprintf("%s: request timeout", e.Op)
	case CauseHTTPStatus:
		return fmt.Sprintf("%s: quickbooks returned status %d", e.Op, e.StatusCode)
	case CauseDecode:
		return fmt.Sprintf("%s: invalid response from quickbooks: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// ResolutionError reports a failed lookup or creation of a referenced
// entity (customer, vendor, account).
type ResolutionError struct {
	EntityType string
	Name       string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.EntityType, e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

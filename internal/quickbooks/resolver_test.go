package quickbooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateCustomer_ExistingMatch(t *testing.T) {
	var createCalled bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v3/company/9130001/query") {
			w.Write([]byte(`{"QueryResponse": {"Customer": [{"Id": "58", "Name": "Acme Corp"}]}}`))
			return
		}
		createCalled = true
		t.Errorf("unexpected create request: %s", r.URL.Path)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)

	ref, err := client.FindOrCreateCustomer(context.Background(), testAuth, "Acme Corp")

	require.NoError(t, err)
	assert.Equal(t, EntityRef{Value: "58", Name: "Acme Corp"}, ref)
	assert.False(t, createCalled)
}

func TestFindOrCreateCustomer_FirstMatchWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"QueryResponse": {"Customer": [
			{"Id": "58", "Name": "Acme Corp"},
			{"Id": "99", "Name": "Acme Corp"}
		]}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)

	ref, err := client.FindOrCreateCustomer(context.Background(), testAuth, "Acme Corp")

	require.NoError(t, err)
	assert.Equal(t, "58", ref.Value)
}

func TestFindOrCreateVendor_CreatesWhenMissing(t *testing.T) {
	var createBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v3/company/9130001/query") {
			w.Write([]byte(`{"QueryResponse": {}}`))
			return
		}

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/company/9130001/vendor", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))

		w.Write([]byte(`{"Vendor": {"Id": "72", "Name": "New Vendor"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)

	ref, err := client.FindOrCreateVendor(context.Background(), testAuth, "New Vendor")

	require.NoError(t, err)
	assert.Equal(t, "72", ref.Value)
	assert.Equal(t, "New Vendor", createBody["Name"])
	assert.Equal(t, "New Vendor", createBody["CompanyName"])
}

func TestFindOrCreateAccount_CreateBody(t *testing.T) {
	var createBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v3/company/9130001/query") {
			w.Write([]byte(`{"QueryResponse": {}}`))
			return
		}

		assert.Equal(t, "/v3/company/9130001/account", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))

		w.Write([]byte(`{"Account": {"Id": "31", "Name": "Travel"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)

	ref, err := client.FindOrCreateAccount(context.Background(), testAuth, "Travel")

	require.NoError(t, err)
	assert.Equal(t, "31", ref.Value)
	assert.Equal(t, "Expense", createBody["AccountType"])
	assert.Equal(t, "OtherMiscellaneousServiceCost", createBody["AccountSubType"])
}

func TestFindOrCreate_EscapesQuotedName(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v3/company/9130001/query") {
			gotQuery = r.URL.Query().Get("query")
			w.Write([]byte(`{"QueryResponse": {"Customer": [{"Id": "7", "Name": "O'Brien Ltd"}]}}`))
			return
		}
		t.Errorf("unexpected request: %s", r.URL.Path)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)

	ref, err := client.FindOrCreateCustomer(context.Background(), testAuth, "O'Brien Ltd")

	require.NoError(t, err)
	assert.Equal(t, "7", ref.Value)
	assert.Equal(t, `SELECT * FROM Customer WHERE Name = 'O\'Brien Ltd'`, gotQuery)
}

func TestFindOrCreate_WrapsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)

	_, err := client.FindOrCreateCustomer(context.Background(), testAuth, "Acme Corp")

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Customer", resErr.EntityType)
	assert.Equal(t, "Acme Corp", resErr.Name)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestEscapeQueryLiteral(t *testing.T) {
	assert.Equal(t, `O\'Brien`, escapeQueryLiteral("O'Brien"))
	assert.Equal(t, "plain", escapeQueryLiteral("plain"))
}

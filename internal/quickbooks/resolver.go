package quickbooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// FindOrCreateCustomer resolves a customer by exact name, creating it when
// no match exists. The first match wins; duplicates on the QuickBooks side
// are ignored.
func (c *Client) FindOrCreateCustomer(ctx context.Context, auth Auth, name string) (EntityRef, error) {
	return c.findOrCreate(ctx, auth, "Customer", name, map[string]string{
		"Name":        name,
		"CompanyName": name,
	})
}

// FindOrCreateVendor resolves a vendor by exact name, creating it when no
// match exists.
func (c *Client) FindOrCreateVendor(ctx context.Context, auth Auth, name string) (EntityRef, error) {
	return c.findOrCreate(ctx, auth, "Vendor", name, map[string]string{
		"Name":        name,
		"CompanyName": name,
	})
}

// FindOrCreateAccount resolves an expense account by exact name. A missing
// account is created as a generic miscellaneous expense account.
func (c *Client) FindOrCreateAccount(ctx context.Context, auth Auth, name string) (EntityRef, error) {
	return c.findOrCreate(ctx, auth, "Account", name, map[string]string{
		"Name":           name,
		"AccountType":    "Expense",
		"AccountSubType": "OtherMiscellaneousServiceCost",
	})
}

// findOrCreate implements the shared lookup-then-create resolution flow.
// It never retries; concurrent callers racing on the same missing name can
// both create the entity, which QuickBooks tolerates as duplicates.
func (c *Client) findOrCreate(ctx context.Context, auth Auth, entityType, name string, createBody interface{}) (EntityRef, error) {
	op := "resolve " + strings.ToLower(entityType)

	query := "SELECT * FROM " + entityType + " WHERE Name = '" + escapeQueryLiteral(name) + "'"
	endpoint := "query?query=" + url.QueryEscape(query)

	resp, err := c.doRequest(ctx, http.MethodGet, auth, endpoint, nil, op)
	if err != nil {
		return EntityRef{}, &ResolutionError{EntityType: entityType, Name: name, Err: err}
	}

	if ref, ok := firstMatch(resp, entityType); ok {
		c.logger.Debug("resolved existing entity",
			zap.String("type", entityType),
			zap.String("name", name),
			zap.String("id", ref.Value))
		return ref, nil
	}

	resp, err = c.doRequest(ctx, http.MethodPost, auth, strings.ToLower(entityType), createBody, op)
	if err != nil {
		return EntityRef{}, &ResolutionError{EntityType: entityType, Name: name, Err: err}
	}

	entity, err := extractEntity(resp, entityType, op)
	if err != nil {
		return EntityRef{}, &ResolutionError{EntityType: entityType, Name: name, Err: err}
	}

	c.logger.Info("created quickbooks entity",
		zap.String("type", entityType),
		zap.String("name", name),
		zap.String("id", entity.ID))
	return EntityRef{Value: entity.ID, Name: entity.Name}, nil
}

// firstMatch pulls the first entity of the given type out of a query
// response envelope. A missing or empty QueryResponse means no match.
func firstMatch(env envelope, entityType string) (EntityRef, bool) {
	raw, ok := env["QueryResponse"]
	if !ok {
		return EntityRef{}, false
	}

	var inner envelope
	if err := json.Unmarshal(raw, &inner); err != nil {
		return EntityRef{}, false
	}

	list, ok := inner[entityType]
	if !ok {
		return EntityRef{}, false
	}

	var entities []Entity
	if err := json.Unmarshal(list, &entities); err != nil || len(entities) == 0 {
		return EntityRef{}, false
	}

	return EntityRef{Value: entities[0].ID, Name: entities[0].Name}, true
}

// escapeQueryLiteral escapes single quotes so a counterparty name cannot
// break out of the query string literal.
func escapeQueryLiteral(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

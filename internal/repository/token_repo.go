package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/models"
)

// TokenRepository stores the QuickBooks OAuth tokens for the connected
// company. The table holds at most one row; reconnecting overwrites it.
type TokenRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *sql.DB, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

// Save persists the token set, replacing any previously stored one.
func (r *TokenRepository) Save(t *models.OAuthToken) error {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM oauth_tokens LIMIT 1`).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		result, err := r.db.Exec(`
			INSERT INTO oauth_tokens (access_token, refresh_token, realm_id, expires_at, scope)
			VALUES (?, ?, ?, ?, ?)`,
			t.AccessToken, t.RefreshToken, t.RealmID, t.ExpiresAt, nullableString(t.Scope),
		)
		if err != nil {
			r.logger.Error("Failed to insert oauth token", zap.Error(err))
			return fmt.Errorf("failed to save token: %w", err)
		}
		t.ID, _ = result.LastInsertId()
		return nil

	case err != nil:
		return fmt.Errorf("failed to look up stored token: %w", err)

	default:
		_, err := r.db.Exec(`
			UPDATE oauth_tokens
			SET access_token = ?, refresh_token = ?, realm_id = ?, expires_at = ?,
				scope = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			t.AccessToken, t.RefreshToken, t.RealmID, t.ExpiresAt, nullableString(t.Scope), id,
		)
		if err != nil {
			r.logger.Error("Failed to update oauth token", zap.Error(err))
			return fmt.Errorf("failed to save token: %w", err)
		}
		t.ID = id
		return nil
	}
}

// Get returns the stored token, or nil without error when the company has
// never connected.
func (r *TokenRepository) Get() (*models.OAuthToken, error) {
	query := `
		SELECT id, access_token, refresh_token, realm_id, expires_at, scope,
			created_at, updated_at
		FROM oauth_tokens
		LIMIT 1
	`

	var (
		t         models.OAuthToken
		expiresAt sql.NullTime
		scope     sql.NullString
	)

	err := r.db.QueryRow(query).Scan(
		&t.ID,
		&t.AccessToken,
		&t.RefreshToken,
		&t.RealmID,
		&expiresAt,
		&scope,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get oauth token", zap.Error(err))
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	if scope.Valid {
		t.Scope = scope.String
	}

	return &t, nil
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// TokenRepository handles database operations for public API tokens
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *TokenRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

var tokenFields = []string{"id", "token", "name", "table_access", "expires_at", "created_at"}

// Create stores a new API token. TableAccess is persisted as a JSON array,
// NULL meaning unrestricted.
func (r *TokenRepository) Create(ctx context.Context, token *models.APIToken) error {
	access, err := EncodeTableAccess(token.TableAccess)
	if err != nil {
		return err
	}

	q := query.Insert(constants.TableAPITokens, map[string]interface{}{
		"id":           token.ID,
		"token":        token.Token,
		"name":         token.Name,
		"table_access": access,
		"expires_at":   nullableTime(token.ExpiresAt),
		"created_at":   token.CreatedAt,
	}).Build()

	_, err = r.db.ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// FindByToken resolves a presented token value, nil when unknown
func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*models.APIToken, error) {
	q := query.From(constants.TableAPITokens).
		Select(tokenFields).
		Where("`token` = ?", token).
		Limit(1).
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	tokens, err := scanTokens(rows)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return tokens[0], nil
}

// GetByID loads one token by its id, nil when absent
func (r *TokenRepository) GetByID(ctx context.Context, id string) (*models.APIToken, error) {
	q := query.From(constants.TableAPITokens).
		Select(tokenFields).
		Where("`id` = ?", id).
		Limit(1).
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	tokens, err := scanTokens(rows)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return tokens[0], nil
}

// List returns every token, newest first
func (r *TokenRepository) List(ctx context.Context) ([]*models.APIToken, error) {
	q := query.From(constants.TableAPITokens).
		Select(tokenFields).
		OrderBy("created_at", "desc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanTokens(rows)
}

// Update applies field changes to a token
func (r *TokenRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	q := query.Update(constants.TableAPITokens).
		Set(fields).
		Where("`id` = ?", id).
		Build()

	res, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one token
func (r *TokenRepository) Delete(ctx context.Context, id string) (int64, error) {
	q := query.Delete(constants.TableAPITokens).
		Where("`id` = ?", id).
		Build()

	res, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired clears tokens whose expiry has passed
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	q := query.Delete(constants.TableAPITokens).
		Where("`expires_at` IS NOT NULL").
		Where("`expires_at` < ?", time.Now()).
		Build()

	res, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EncodeTableAccess serializes a token allow-list for storage. A nil list
// stores as NULL, which reads back as unrestricted.
func EncodeTableAccess(access []string) (interface{}, error) {
	if access == nil {
		return nil, nil
	}
	blob, err := json.Marshal(access)
	if err != nil {
		return nil, err
	}
	return string(blob), nil
}

func scanTokens(rows *sql.Rows) ([]*models.APIToken, error) {
	defer rows.Close()

	out := make([]*models.APIToken, 0)
	for rows.Next() {
		var (
			t         models.APIToken
			access    sql.NullString
			expiresAt interface{}
			createdAt interface{}
		)
		if err := rows.Scan(&t.ID, &t.Token, &t.Name, &access, &expiresAt, &createdAt); err != nil {
			return nil, err
		}

		if access.Valid && access.String != "" {
			var list []string
			if err := json.Unmarshal([]byte(access.String), &list); err != nil {
				log.Printf("⚠️ Malformed table_access for token %s, treating as unrestricted: %v", t.ID, err)
			} else {
				t.TableAccess = list
			}
		}
		if ts := asTime(expiresAt); !ts.IsZero() {
			t.ExpiresAt = &ts
		}
		t.CreatedAt = asTime(createdAt)

		out = append(out, &t)
	}
	return out, rows.Err()
}

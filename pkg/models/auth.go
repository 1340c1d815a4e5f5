package models

import "time"

// UserContext identifies the authenticated caller. It is produced by the
// auth middleware and travels through the request context.
type UserContext struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

// APIToken is an opaque access token for the public API. A nil TableAccess
// means the token is unrestricted.
type APIToken struct {
	ID          string     `json:"id"`
	Token       string     `json:"-"`
	Name        string     `json:"name"`
	TableAccess []string   `json:"table_access,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Unrestricted reports whether the token may reach any accessible table
func (t *APIToken) Unrestricted() bool {
	return t.TableAccess == nil
}

// Expired checks the token against its expiry, if any
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// AllowsTable checks the token's allow-list. Unrestricted tokens allow
// every table here; visibility is checked separately.
func (t *APIToken) AllowsTable(tableID string) bool {
	if t.Unrestricted() {
		return true
	}
	for _, id := range t.TableAccess {
		if id == tableID {
			return true
		}
	}
	return false
}

// CreateTokenRequest mints a new API token. An empty TableAccess list means
// the token is unrestricted.
type CreateTokenRequest struct {
	Name        string     `json:"name" binding:"required"`
	TableAccess []string   `json:"table_access,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// UpdateTokenRequest changes a token. Nil fields are left unchanged;
// Unrestricted=true drops the allow-list entirely.
type UpdateTokenRequest struct {
	Name         *string    `json:"name,omitempty"`
	TableAccess  []string   `json:"table_access,omitempty"`
	Unrestricted bool       `json:"unrestricted,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

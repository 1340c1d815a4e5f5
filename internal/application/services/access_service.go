package services

import (
	"context"
	"log"
	"time"

	"github.com/erimeilis/store-sub004/internal/infrastructure/cache"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// AccessService resolves public API tokens and answers per-table access
// questions. Answers are cached per (token, table) pair; token mutations
// invalidate exactly the pairs they touch.
type AccessService struct {
	tokenRepo *persistence.TokenRepository
	tableRepo *persistence.TableRepository
	cache     *cache.RowCache
}

// NewAccessService creates a new AccessService
func NewAccessService(tokenRepo *persistence.TokenRepository, tableRepo *persistence.TableRepository, rowCache *cache.RowCache) *AccessService {
	return &AccessService{tokenRepo: tokenRepo, tableRepo: tableRepo, cache: rowCache}
}

// ResolveToken turns a presented bearer value into a live token.
// Unknown and expired tokens are indistinguishable to the caller.
func (s *AccessService) ResolveToken(ctx context.Context, raw string) (*models.APIToken, error) {
	if raw == "" {
		return nil, errors.NewUnauthorizedError("missing API token")
	}
	token, err := s.tokenRepo.FindByToken(ctx, raw)
	if err != nil {
		return nil, errors.NewInternalError("failed to resolve token", err)
	}
	if token == nil || token.Expired(time.Now()) {
		return nil, errors.NewUnauthorizedError("invalid or expired API token")
	}
	return token, nil
}

// CanAccess answers whether a token may read a table. Restricted tokens see
// only their allow-list; unrestricted tokens see every public or shared
// table. Private tables are never reachable through the public API.
func (s *AccessService) CanAccess(ctx context.Context, token *models.APIToken, tableID string) (bool, error) {
	if allowed, ok := s.cache.GetAccess(token.ID, tableID); ok {
		return allowed, nil
	}

	allowed, err := s.checkAccess(ctx, token, tableID)
	if err != nil {
		return false, err
	}
	s.cache.SetAccess(token.ID, tableID, allowed)
	return allowed, nil
}

func (s *AccessService) checkAccess(ctx context.Context, token *models.APIToken, tableID string) (bool, error) {
	if !token.Unrestricted() {
		return token.AllowsTable(tableID), nil
	}

	table, err := s.tableRepo.GetByID(ctx, nil, tableID)
	if err != nil {
		return false, errors.NewInternalError("failed to load table", err)
	}
	if table == nil {
		return false, nil
	}
	return table.Visibility == constants.VisibilityPublic || table.Visibility == constants.VisibilityShared, nil
}

// AccessibleTables lists every table a token may read, restricted to the
// inventory types the public API serves.
func (s *AccessService) AccessibleTables(ctx context.Context, token *models.APIToken) ([]*models.Table, error) {
	var tables []*models.Table
	var err error

	if token.Unrestricted() {
		tables, err = s.tableRepo.ListPublic(ctx)
	} else {
		tables, err = s.tableRepo.ListByIDs(ctx, token.TableAccess)
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to list tables", err)
	}

	out := make([]*models.Table, 0, len(tables))
	for _, t := range tables {
		if t.Type != constants.TableTypeSale && t.Type != constants.TableTypeRent {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateToken mints a new API token. The opaque value is only ever returned
// here; it is not readable afterwards.
func (s *AccessService) CreateToken(ctx context.Context, req models.CreateTokenRequest) (*models.APIToken, string, error) {
	var access []string
	if len(req.TableAccess) > 0 {
		access = req.TableAccess
	}

	value := utils.GenerateToken()
	token := &models.APIToken{
		ID:          utils.GenerateID(),
		Token:       value,
		Name:        req.Name,
		TableAccess: access,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   time.Now(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, "", errors.NewInternalError("failed to create token", err)
	}

	log.Printf("📝 Created API token '%s' (%s)", token.Name, token.ID)
	return token, value, nil
}

// ListTokens returns all tokens without their opaque values
func (s *AccessService) ListTokens(ctx context.Context) ([]*models.APIToken, error) {
	tokens, err := s.tokenRepo.List(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list tokens", err)
	}
	return tokens, nil
}

// GetToken loads one token by id
func (s *AccessService) GetToken(ctx context.Context, id string) (*models.APIToken, error) {
	token, err := s.tokenRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load token", err)
	}
	if token == nil {
		return nil, errors.NewNotFoundError("token", id)
	}
	return token, nil
}

// UpdateToken changes a token's name, allow-list or expiry. Cached access
// answers for every table the change touches are dropped.
func (s *AccessService) UpdateToken(ctx context.Context, id string, req models.UpdateTokenRequest) (*models.APIToken, error) {
	before, err := s.GetToken(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.ExpiresAt != nil {
		fields["expires_at"] = *req.ExpiresAt
	}

	accessChanged := false
	if req.Unrestricted {
		fields["table_access"] = nil
		accessChanged = true
	} else if req.TableAccess != nil {
		encoded, err := persistence.EncodeTableAccess(req.TableAccess)
		if err != nil {
			return nil, errors.NewInternalError("failed to encode allow-list", err)
		}
		fields["table_access"] = encoded
		accessChanged = true
	}

	if len(fields) > 0 {
		if _, err := s.tokenRepo.Update(ctx, id, fields); err != nil {
			return nil, errors.NewInternalError("failed to update token", err)
		}
	}

	after, err := s.GetToken(ctx, id)
	if err != nil {
		return nil, err
	}
	if accessChanged {
		s.invalidateAccess(before, after)
	}
	return after, nil
}

// DeleteToken removes a token and the access answers cached for it
func (s *AccessService) DeleteToken(ctx context.Context, id string) error {
	token, err := s.GetToken(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.tokenRepo.Delete(ctx, id); err != nil {
		return errors.NewInternalError("failed to delete token", err)
	}
	s.invalidateAccess(token, nil)
	log.Printf("🗑️ Deleted API token '%s' (%s)", token.Name, token.ID)
	return nil
}

// invalidateAccess drops the cached (token, table) pairs affected by an
// allow-list change. Unrestricted tokens have no enumerable table set, so
// those fall back to dropping the token's whole access slice.
func (s *AccessService) invalidateAccess(before, after *models.APIToken) {
	if before.Unrestricted() || (after != nil && after.Unrestricted()) {
		s.cache.TokenChanged(before.ID)
		return
	}

	touched := make(map[string]bool)
	for _, id := range before.TableAccess {
		touched[id] = true
	}
	if after != nil {
		for _, id := range after.TableAccess {
			touched[id] = true
		}
	}
	for tableID := range touched {
		s.cache.AccessChanged(before.ID, tableID)
	}
}

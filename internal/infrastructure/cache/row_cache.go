package cache

import (
	"time"

	"github.com/erimeilis/store-sub004/pkg/models"
)

// Cache keys of the three families. Every key embeds the table id so a
// whole table can be dropped by prefix.
func itemKey(tableID, rowID string) string { return "item:" + tableID + ":" + rowID }
func itemPrefix(tableID string) string     { return "item:" + tableID + ":" }
func countKey(tableID string) string       { return "count:" + tableID }

func accessKey(userID, tableID string) string { return "access:" + userID + ":" + tableID }

// RowCache is the typed view over the Store: single-row lookups, per-table
// row counts and per-(user, table) access decisions. It is best-effort all
// the way down. A nil RowCache or nil Store reports every read as a miss
// and swallows every write, so call sites never branch on cache presence.
//
// Invalidation is keyed by what happened, not by which keys to drop:
// RowChanged, TableChanged and AccessChanged cover every mutation path.
type RowCache struct {
	store Store
	ttl   time.Duration
}

// NewRowCache wraps a Store. ttl <= 0 defers to the store's default.
func NewRowCache(store Store, ttl time.Duration) *RowCache {
	return &RowCache{store: store, ttl: ttl}
}

func (c *RowCache) disabled() bool {
	return c == nil || c.store == nil
}

// GetItem returns a cached row copy, miss when absent
func (c *RowCache) GetItem(tableID, rowID string) (*models.Row, bool) {
	if c.disabled() {
		return nil, false
	}

	v, ok := c.store.Get(itemKey(tableID, rowID))
	if !ok {
		return nil, false
	}
	row, ok := v.(*models.Row)
	if !ok || row == nil {
		return nil, false
	}
	return cloneRow(row), true
}

// SetItem caches a copy of the row
func (c *RowCache) SetItem(row *models.Row) {
	if c.disabled() || row == nil {
		return
	}
	c.store.Set(itemKey(row.TableID, row.ID), cloneRow(row), c.ttl)
}

// GetRowCount returns the cached unfiltered row count of a table
func (c *RowCache) GetRowCount(tableID string) (int, bool) {
	if c.disabled() {
		return 0, false
	}

	v, ok := c.store.Get(countKey(tableID))
	if !ok {
		return 0, false
	}
	count, ok := v.(int)
	return count, ok
}

// SetRowCount caches a table's unfiltered row count
func (c *RowCache) SetRowCount(tableID string, count int) {
	if c.disabled() {
		return
	}
	c.store.Set(countKey(tableID), count, c.ttl)
}

// GetAccess returns a cached access decision for (user, table)
func (c *RowCache) GetAccess(userID, tableID string) (bool, bool) {
	if c.disabled() {
		return false, false
	}

	v, ok := c.store.Get(accessKey(userID, tableID))
	if !ok {
		return false, false
	}
	allowed, ok := v.(bool)
	return allowed, ok
}

// SetAccess caches an access decision
func (c *RowCache) SetAccess(userID, tableID string, allowed bool) {
	if c.disabled() {
		return
	}
	c.store.Set(accessKey(userID, tableID), allowed, c.ttl)
}

// RowChanged drops the named rows and the table's row count after a row
// level write.
func (c *RowCache) RowChanged(tableID string, rowIDs ...string) {
	if c.disabled() {
		return
	}

	for _, id := range rowIDs {
		c.store.Delete(itemKey(tableID, id))
	}
	c.store.Delete(countKey(tableID))
}

// TableChanged drops everything cached for a table. Used by mass actions,
// imports, column changes and table deletion, where enumerating affected
// rows is not worth it.
func (c *RowCache) TableChanged(tableID string) {
	if c.disabled() {
		return
	}

	c.store.DeletePrefix(itemPrefix(tableID))
	c.store.Delete(countKey(tableID))
}

// AccessChanged drops one (user, table) decision. Deliberately narrow so a
// single permission edit does not storm the whole access family.
func (c *RowCache) AccessChanged(userID, tableID string) {
	if c.disabled() {
		return
	}
	c.store.Delete(accessKey(userID, tableID))
}

// TokenChanged drops every decision cached for one token. For changes whose
// affected tables cannot be enumerated, like flipping to unrestricted.
func (c *RowCache) TokenChanged(userID string) {
	if c.disabled() {
		return
	}
	c.store.DeletePrefix(accessKey(userID, ""))
}

// Flush drops all three families
func (c *RowCache) Flush() {
	if c.disabled() {
		return
	}
	c.store.Flush()
}

func cloneRow(row *models.Row) *models.Row {
	copied := *row
	copied.Data = row.Data.Clone()
	return &copied
}

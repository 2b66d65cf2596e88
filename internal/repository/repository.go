// Package repository holds the GORM data access layer. Methods suffixed with
// Tx run on the caller's transaction handle; everything else opens its own
// session on the repository's *gorm.DB.
package repository

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleVersion is returned by versioned updates when the row changed since
// it was read.
var ErrStaleVersion = errors.New("stale row version")

// forUpdate is the row lock taken on every ledger row a transaction mutates.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// page normalises pagination the same way for every listing.
func page(p, l, def, max int) (offset, limit int) {
	if p < 1 {
		p = 1
	}
	if l < 1 || l > max {
		l = def
	}
	return (p - 1) * l, l
}

// sortedIDs returns a de-duplicated, ascending copy of ids. Locks are always
// taken in this order so two transactions touching overlapping rows cannot
// deadlock.
func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// versioned applies cols to the row identified by (id, version) and bumps the
// version. RowsAffected == 0 means another writer got there first.
func versioned(tx *gorm.DB, m interface{}, id uuid.UUID, version int64, cols map[string]interface{}) error {
	cols["version"] = version + 1
	res := tx.Model(m).Where("id = ? AND version = ?", id, version).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

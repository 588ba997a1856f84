// Package tenant scopes GORM queries to one family.
//
// A family is the tenant of Family Nest. Every family-owned table carries a
// family_id column, and repositories apply FamilyScope to every statement
// that touches one:
//
//	db.WithContext(ctx).Scopes(tenant.FamilyScope(familyID)).Find(&members)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the tenant column of family-owned tables
const Column = "family_id"

// ErrFamilyIDRequired is returned when a scoped statement has no family
var ErrFamilyIDRequired = errors.New("family_id is required")

// FamilyScope filters a statement to one family. A nil id aborts the
// statement with ErrFamilyIDRequired instead of running it unscoped.
func FamilyScope(familyID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return QualifiedFamilyScope("", familyID)
}

// QualifiedFamilyScope is FamilyScope for joined statements, where the
// column must be prefixed with its table
func QualifiedFamilyScope(table string, familyID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	column := Column
	if table != "" {
		column = table + "." + Column
	}
	return func(db *gorm.DB) *gorm.DB {
		if familyID == uuid.Nil {
			_ = db.AddError(ErrFamilyIDRequired)
			return db
		}
		return db.Where(column+" = ?", familyID)
	}
}

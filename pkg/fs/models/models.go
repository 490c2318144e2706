// Package models defines the database models and domain errors for the
// shelf metadata store.
package models

// AllModels returns every model for GORM auto-migration.
// Order matters for foreign key creation.
func AllModels() []any {
	return []any{
		&User{},
		&RolePermission{},
		&Medium{},
		&Item{},
		&ItemTag{},
		&MediumTag{},
	}
}

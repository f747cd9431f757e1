package core

import (
	"strings"
)

// A Category groups articles. ParentID forms a tree for presentation
// purposes, it has no effect on permission resolution.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int   `json:"parentId"`
	CreatedBy   int    `json:"createdBy"`
	TsCreated   int64  `json:"tsCreated"`
}

// CategoryPatch changes only the supplied fields. A ParentID of 0 detaches
// the category from its parent.
type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *int    `json:"parentId"`
}

func (p *CategoryPatch) Validate() error {
	if p.Name != nil {
		if err := ValidateCategoryName(*p.Name); err != nil {
			return err
		}
	}
	if p.Description != nil && len(*p.Description) > 2000 {
		return Validationf("description must be at most 2000 characters")
	}
	return nil
}

type CategoryStore interface {
	GetCategory(id int) (*Category, error)
	GetAllCategories(limit, offset int) ([]*Category, error)

	// GetCategoriesFor returns categories the user created or holds a
	// non-none grant on, de-duplicated by id. A user can match both
	// clauses at once.
	GetCategoriesFor(userID, limit, offset int) ([]*Category, error)

	// InsertCategory creates the category and a write grant for its
	// creator in one transaction. If the grant can not be written, the
	// category is not created either.
	InsertCategory(name, description string, parentID *int, createdBy int) (*Category, error)

	UpdateCategory(id int, patch CategoryPatch) (*Category, error)

	// DeleteCategory detaches the category's articles and files,
	// re-parents its children and removes its grant rows, all in one
	// transaction. Deleting a nonexistent id returns false.
	DeleteCategory(id int) (bool, error)
}

func ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Validationf("name is required")
	}
	if len(name) > 128 {
		return Validationf("name must be at most 128 characters")
	}
	return nil
}

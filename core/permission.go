package core

import (
	"encoding/json"
	"fmt"
)

// Permission is a per-user, per-category grant.
// Higher permissions include lower permissions.
type Permission int

const (
	None  Permission = 1
	Read  Permission = 100
	Write Permission = 200
)

func (p Permission) String() string {
	switch p {
	case None:
		return "none"
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "unknown"
}

func (p Permission) Valid() bool {
	switch p {
	case None:
		return true
	case Read:
		return true
	case Write:
		return true
	default:
		return false
	}
}

// ParsePermission is the inverse of String.
func ParsePermission(s string) (Permission, bool) {
	switch s {
	case "none":
		return None, true
	case "read":
		return Read, true
	case "write":
		return Write, true
	}
	return 0, false
}

// Permissions travel as their names on the wire, the ordered int is a
// storage detail.

func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParsePermission(s)
	if !ok {
		return fmt.Errorf("unknown permission %q", s)
	}
	*p = parsed
	return nil
}

// A Grant is one row of the permission table. The (UserID, CategoryID) pair
// is unique, its permission is the current grant, not additive history.
type Grant struct {
	ID         int        `json:"id"`
	UserID     int        `json:"userId"`
	CategoryID int        `json:"categoryId"`
	Permission Permission `json:"permission"`
}

type GrantStore interface {
	GetGrant(id int) (*Grant, error)
	GetAllGrants(limit, offset int) ([]*Grant, error)
	GetGrantsByCategory(categoryID int) ([]*Grant, error)

	// GetPermission treats a missing row as None.
	GetPermission(userID, categoryID int) (Permission, error)

	// SetPermission upserts: setting a permission for an existing pair
	// overwrites the type rather than creating a duplicate row.
	SetPermission(userID, categoryID int, perm Permission) (*Grant, error)

	UpdateGrant(id int, perm Permission) (*Grant, error)
	DeleteGrant(id int) (bool, error)
}

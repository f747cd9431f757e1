package core

import (
	"strings"
)

// Role is a system-wide designation. Admins bypass all grant checks.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Hash      string `json:"-"`
	Role      Role   `json:"role"`
	TsCreated int64  `json:"tsCreated"`
}

// IsAdmin is nil-safe, a nil user is an unauthenticated request.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type UserPatch struct {
	Email *string `json:"email"`
}

func (p *UserPatch) Validate() error {
	if p.Email != nil {
		if err := ValidateEmail(*p.Email); err != nil {
			return err
		}
	}
	return nil
}

type UserStore interface {
	GetUser(id int) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetAllUsers(limit, offset int) ([]*User, error)
	InsertUser(email, hash string, role Role) (*User, error)
	UpdateUser(id int, patch UserPatch) (*User, error)
	SetPasswordHash(id int, hash string) error

	// CountOwnedContent counts categories and articles created by the user.
	CountOwnedContent(id int) (int, error)

	// DeleteUser removes the user and their grant rows. Deleting a
	// nonexistent id returns false, not an error.
	DeleteUser(id int) (bool, error)
}

// CleanEmail normalizes an email address for storage and lookup.
func CleanEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)
	return email
}

func ValidateEmail(email string) error {
	email = CleanEmail(email)
	if email == "" {
		return Validationf("email is required")
	}
	if len(email) > 128 {
		return Validationf("email must be at most 128 characters")
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return Validationf("email is not a valid address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < 8 {
		return Validationf("password must be at least 8 characters")
	}
	return nil
}

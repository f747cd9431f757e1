package core

import (
	"errors"

	"kb/auth"
)

// Login authenticates a user by email and password. Both an unknown email
// and a wrong password come back as ErrAuth.
//
// On a successful verification against the legacy hash scheme, the password
// is re-hashed under the current scheme and persisted. That upgrade is lazy
// and best-effort: a failed write is logged and swallowed, the login still
// succeeds.
func (c *CoreDB) Login(email, password string) (*User, error) {

	u, err := c.UserStore.GetUserByEmail(CleanEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAuth // user not found
	}
	if err != nil {
		return nil, err
	}

	if !auth.Verify(password, u.Hash) {
		return nil, ErrAuth // wrong password
	}

	if auth.NeedsRehash(u.Hash) {
		newHash, err := auth.Hash(password)
		if err == nil {
			err = c.UserStore.SetPasswordHash(u.ID, newHash)
		}
		if err == nil {
			u.Hash = newHash
		} else {
			c.Log.Warn().Err(err).Int("user", u.ID).Msg("could not upgrade password hash")
		}
	}

	return u, nil
}

// Register validates and inserts a user with the current hash scheme.
func (c *CoreDB) Register(email, password string, role Role) (*User, error) {

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, Validationf("unknown role %q", role)
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return nil, err
	}

	return c.UserStore.InsertUser(CleanEmail(email), hash, role)
}

// SetPassword hashes and stores a new password for the user.
func (c *CoreDB) SetPassword(u *User, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.Hash(password)
	if err != nil {
		return err
	}
	if err := c.UserStore.SetPasswordHash(u.ID, hash); err != nil {
		return err
	}
	u.Hash = hash
	return nil
}

// ChangePassword requires the old password to verify before setting the new one.
func (c *CoreDB) ChangePassword(u *User, old, new string) error {
	if !auth.Verify(old, u.Hash) {
		return ErrAuth
	}
	return c.SetPassword(u, new)
}

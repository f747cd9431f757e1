package core

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kb/auth"
)

// stubUsers holds a single user and records password hash writes.
type stubUsers struct {
	UserStore
	user    *User
	setErr  error
	setHash string
}

func (s *stubUsers) GetUserByEmail(email string) (*User, error) {
	if s.user != nil && s.user.Email == email {
		var u = *s.user
		return &u, nil
	}
	return nil, ErrNotFound
}

func (s *stubUsers) SetPasswordHash(id int, hash string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.setHash = hash
	return nil
}

func loginCoreDB(users *stubUsers) *CoreDB {
	return &CoreDB{
		UserStore: users,
		Log:       zerolog.Nop(),
	}
}

func TestLogin(t *testing.T) {

	hash, err := auth.Hash("secret password")
	require.NoError(t, err)

	users := &stubUsers{user: &User{ID: 7, Email: "alice@example.com", Hash: hash}}
	c := loginCoreDB(users)

	u, err := c.Login("alice@example.com", "secret password")
	require.NoError(t, err)
	assert.Equal(t, 7, u.ID)

	// email lookup is case-insensitive
	u, err = c.Login("  Alice@Example.COM ", "secret password")
	require.NoError(t, err)
	assert.Equal(t, 7, u.ID)

	// no rehash of a current-scheme hash
	assert.Empty(t, users.setHash)
}

func TestLoginFailures(t *testing.T) {

	hash, err := auth.Hash("secret password")
	require.NoError(t, err)

	c := loginCoreDB(&stubUsers{user: &User{ID: 7, Email: "alice@example.com", Hash: hash}})

	// unknown email and wrong password are indistinguishable
	_, err = c.Login("bob@example.com", "secret password")
	assert.ErrorIs(t, err, ErrAuth)

	_, err = c.Login("alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestLoginUpgradesLegacyHash(t *testing.T) {

	legacy, err := auth.LegacyHash("secret password")
	require.NoError(t, err)

	users := &stubUsers{user: &User{ID: 7, Email: "alice@example.com", Hash: legacy}}
	c := loginCoreDB(users)

	u, err := c.Login("alice@example.com", "secret password")
	require.NoError(t, err)

	require.NotEmpty(t, users.setHash)
	assert.False(t, auth.NeedsRehash(users.setHash))
	assert.Equal(t, users.setHash, u.Hash)
	assert.True(t, auth.Verify("secret password", users.setHash))
}

func TestLoginSurvivesFailedUpgrade(t *testing.T) {

	legacy, err := auth.LegacyHash("secret password")
	require.NoError(t, err)

	users := &stubUsers{
		user:   &User{ID: 7, Email: "alice@example.com", Hash: legacy},
		setErr: errors.New("disk full"),
	}
	c := loginCoreDB(users)

	// the upgrade write fails, the login must not
	u, err := c.Login("alice@example.com", "secret password")
	require.NoError(t, err)
	assert.Equal(t, legacy, u.Hash)
}

func TestChangePassword(t *testing.T) {

	hash, err := auth.Hash("old password")
	require.NoError(t, err)

	users := &stubUsers{user: &User{ID: 7, Email: "alice@example.com", Hash: hash}}
	c := loginCoreDB(users)

	u := &User{ID: 7, Email: "alice@example.com", Hash: hash}

	err = c.ChangePassword(u, "wrong password", "new password")
	assert.ErrorIs(t, err, ErrAuth)

	err = c.ChangePassword(u, "old password", "short")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	err = c.ChangePassword(u, "old password", "new password")
	require.NoError(t, err)
	assert.True(t, auth.Verify("new password", users.setHash))
}

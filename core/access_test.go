package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGrants answers GetPermission from a map keyed by (user, category).
type stubGrants struct {
	GrantStore
	perms map[[2]int]Permission
}

func (s stubGrants) GetPermission(userID, categoryID int) (Permission, error) {
	if p, ok := s.perms[[2]int{userID, categoryID}]; ok {
		return p, nil
	}
	return None, nil
}

func testCoreDB(perms map[[2]int]Permission) *CoreDB {
	return &CoreDB{GrantStore: stubGrants{perms: perms}}
}

func intPtr(i int) *int { return &i }

var (
	admin  = &User{ID: 1, Role: RoleAdmin}
	author = &User{ID: 2, Role: RoleUser}
	reader = &User{ID: 3, Role: RoleUser}
	writer = &User{ID: 4, Role: RoleUser}
	nobody = &User{ID: 5, Role: RoleUser}
)

func grants() map[[2]int]Permission {
	return map[[2]int]Permission{
		{reader.ID, 10}: Read,
		{writer.ID, 10}: Write,
		{nobody.ID, 10}: None, // an explicit none row behaves like no row
	}
}

func TestArticleRead(t *testing.T) {

	c := testCoreDB(grants())
	published := &Article{ID: 100, AuthorID: author.ID, CategoryID: intPtr(10), Published: true}

	for _, tc := range []struct {
		name string
		user *User
		want bool
	}{
		{"anonymous", nil, false},
		{"admin", admin, true},
		{"author", author, true},
		{"read grant", reader, true},
		{"write grant", writer, true},
		{"none grant", nobody, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := c.CanAccessArticle(tc.user, published, OpRead)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestUnpublishedArticleRead(t *testing.T) {

	c := testCoreDB(grants())
	draft := &Article{ID: 101, AuthorID: author.ID, CategoryID: intPtr(10), Published: false}

	for _, tc := range []struct {
		name string
		user *User
		want bool
	}{
		{"admin", admin, true},
		{"author", author, true},
		{"read grant can not see drafts", reader, false},
		{"write grant", writer, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := c.CanAccessArticle(tc.user, draft, OpRead)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestUncategorizedArticle(t *testing.T) {

	c := testCoreDB(grants())
	orphan := &Article{ID: 102, AuthorID: author.ID, CategoryID: nil, Published: true}

	for _, op := range []Operation{OpRead, OpWrite} {
		ok, err := c.CanAccessArticle(reader, orphan, op)
		require.NoError(t, err)
		assert.False(t, ok, "reader %s", op)

		ok, err = c.CanAccessArticle(author, orphan, op)
		require.NoError(t, err)
		assert.True(t, ok, "author %s", op)

		ok, err = c.CanAccessArticle(admin, orphan, op)
		require.NoError(t, err)
		assert.True(t, ok, "admin %s", op)
	}
}

func TestArticleWrite(t *testing.T) {

	c := testCoreDB(grants())
	a := &Article{ID: 100, AuthorID: author.ID, CategoryID: intPtr(10), Published: true}

	for _, tc := range []struct {
		name string
		user *User
		want bool
	}{
		{"anonymous", nil, false},
		{"admin", admin, true},
		{"author", author, true},
		{"read grant is not enough", reader, false},
		{"write grant", writer, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := c.CanAccessArticle(tc.user, a, OpWrite)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestArticleDeleteIsAuthorOnly(t *testing.T) {

	c := testCoreDB(grants())
	a := &Article{ID: 100, AuthorID: author.ID, CategoryID: intPtr(10), Published: true}

	ok, err := c.CanAccessArticle(writer, a, OpDelete)
	require.NoError(t, err)
	assert.False(t, ok, "a write grant must not allow deleting someone else's article")

	ok, err = c.CanAccessArticle(author, a, OpDelete)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CanAccessArticle(admin, a, OpDelete)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoParentInheritance(t *testing.T) {

	// a grant on category 10 says nothing about its child category 11
	c := testCoreDB(grants())
	childArticle := &Article{ID: 103, AuthorID: author.ID, CategoryID: intPtr(11), Published: true}

	ok, err := c.CanAccessArticle(writer, childArticle, OpRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategoryMutationIsAdminOnly(t *testing.T) {

	c := testCoreDB(grants())
	cat := &Category{ID: 10, CreatedBy: author.ID}

	for _, op := range []Operation{OpWrite, OpDelete} {
		for _, u := range []*User{author, writer, reader} {
			ok, err := c.CanAccessCategory(u, cat, op)
			require.NoError(t, err)
			assert.False(t, ok, "user %d %s", u.ID, op)
		}
		ok, err := c.CanAccessCategory(admin, cat, op)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCategoryRead(t *testing.T) {

	c := testCoreDB(grants())
	cat := &Category{ID: 10, CreatedBy: author.ID}

	for _, tc := range []struct {
		name string
		user *User
		want bool
	}{
		{"anonymous", nil, false},
		{"creator", author, true},
		{"read grant", reader, true},
		{"none grant", nobody, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := c.CanAccessCategory(tc.user, cat, OpRead)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestFilterReadableArticles(t *testing.T) {

	c := testCoreDB(grants())

	articles := []*Article{
		{ID: 1, AuthorID: author.ID, CategoryID: intPtr(10), Published: true},
		{ID: 2, AuthorID: author.ID, CategoryID: intPtr(10), Published: false},
		{ID: 3, AuthorID: author.ID, CategoryID: nil, Published: true},
		{ID: 4, AuthorID: reader.ID, CategoryID: intPtr(11), Published: true},
	}

	readable, err := c.FilterReadableArticles(reader, articles)
	require.NoError(t, err)

	var ids []int
	for _, a := range readable {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int{1, 4}, ids)
}

package sqldb

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kb/core"
	"kb/sqldb/migrations"
)

// openTestDB migrates a fresh in-memory database. A single connection keeps
// the memory database alive for the whole test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(db, "sqlite3"))
	return db
}

func insertTestUser(t *testing.T, users *UserStore, email string) *core.User {
	t.Helper()
	u, err := users.InsertUser(email, "irrelevant", core.RoleUser)
	require.NoError(t, err)
	return u
}

func TestUserStore(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)

	u, err := users.InsertUser("alice@example.com", "somehash", core.RoleUser)
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, core.RoleUser, u.Role)
	assert.NotZero(t, u.TsCreated)

	got, err := users.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "somehash", got.Hash)

	_, err = users.GetUser(9999)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// duplicate email is a conflict, not a 500
	_, err = users.InsertUser("alice@example.com", "otherhash", core.RoleUser)
	var conflictErr *core.ConflictError
	assert.ErrorAs(t, err, &conflictErr)

	newMail := "alice@example.org"
	updated, err := users.UpdateUser(u.ID, core.UserPatch{Email: &newMail})
	require.NoError(t, err)
	assert.Equal(t, newMail, updated.Email)

	require.NoError(t, users.SetPasswordHash(u.ID, "newhash"))
	got, err = users.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.Hash)
}

func TestDeleteUserRemovesGrants(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	grants := NewGrantStore(db)

	admin := insertTestUser(t, users, "admin@example.com")
	u := insertTestUser(t, users, "user@example.com")

	cat, err := categories.InsertCategory("Ops", "", nil, admin.ID)
	require.NoError(t, err)

	_, err = grants.SetPermission(u.ID, cat.ID, core.Read)
	require.NoError(t, err)

	deleted, err := users.DeleteUser(u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	perm, err := grants.GetPermission(u.ID, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, core.None, perm)

	// deleting again is a no-op
	deleted, err = users.DeleteUser(u.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCountOwnedContent(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	articles := NewArticleStore(db)

	u := insertTestUser(t, users, "owner@example.com")

	count, err := users.CountOwnedContent(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	cat, err := categories.InsertCategory("Ops", "", nil, u.ID)
	require.NoError(t, err)
	_, err = articles.InsertArticle("Runbook", "text", core.FormatMarkdown, &cat.ID, u.ID, true)
	require.NoError(t, err)

	count, err = users.CountOwnedContent(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInsertCategoryGrantsCreatorWrite(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	grants := NewGrantStore(db)

	u := insertTestUser(t, users, "creator@example.com")

	cat, err := categories.InsertCategory("Ops", "runbooks and such", nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, cat.CreatedBy)
	assert.Nil(t, cat.ParentID)

	perm, err := grants.GetPermission(u.ID, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Write, perm)
}

func TestCategoriesFor(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	grants := NewGrantStore(db)

	creator := insertTestUser(t, users, "creator@example.com")
	other := insertTestUser(t, users, "other@example.com")

	cat, err := categories.InsertCategory("Ops", "", nil, creator.ID)
	require.NoError(t, err)
	hidden, err := categories.InsertCategory("Secret", "", nil, other.ID)
	require.NoError(t, err)

	// creator holds both the created_by clause and the self-grant,
	// the row must still appear only once
	visible, err := categories.GetCategoriesFor(creator.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, cat.ID, visible[0].ID)

	// an explicit none grant does not make a category visible
	_, err = grants.SetPermission(creator.ID, hidden.ID, core.None)
	require.NoError(t, err)
	visible, err = categories.GetCategoriesFor(creator.ID, 100, 0)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	_, err = grants.SetPermission(creator.ID, hidden.ID, core.Read)
	require.NoError(t, err)
	visible, err = categories.GetCategoriesFor(creator.ID, 100, 0)
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestDeleteCategoryCascades(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	articles := NewArticleStore(db)
	grants := NewGrantStore(db)

	u := insertTestUser(t, users, "creator@example.com")

	root, err := categories.InsertCategory("Root", "", nil, u.ID)
	require.NoError(t, err)
	mid, err := categories.InsertCategory("Mid", "", &root.ID, u.ID)
	require.NoError(t, err)
	child, err := categories.InsertCategory("Child", "", &mid.ID, u.ID)
	require.NoError(t, err)

	a, err := articles.InsertArticle("Runbook", "text", core.FormatMarkdown, &mid.ID, u.ID, true)
	require.NoError(t, err)

	deleted, err := categories.DeleteCategory(mid.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// the article survives, detached
	a, err = articles.GetArticle(a.ID)
	require.NoError(t, err)
	assert.Nil(t, a.CategoryID)

	// the child moves up to the deleted category's parent
	child, err = categories.GetCategory(child.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	// the grant rows are gone
	perm, err := grants.GetPermission(u.ID, mid.ID)
	require.NoError(t, err)
	assert.Equal(t, core.None, perm)

	deleted, err = categories.DeleteCategory(mid.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGrantUpsert(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	grants := NewGrantStore(db)

	admin := insertTestUser(t, users, "admin@example.com")
	u := insertTestUser(t, users, "user@example.com")

	cat, err := categories.InsertCategory("Ops", "", nil, admin.ID)
	require.NoError(t, err)

	g1, err := grants.SetPermission(u.ID, cat.ID, core.Read)
	require.NoError(t, err)
	assert.Equal(t, core.Read, g1.Permission)

	// setting again overwrites the row instead of adding one
	g2, err := grants.SetPermission(u.ID, cat.ID, core.Write)
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID)
	assert.Equal(t, core.Write, g2.Permission)

	all, err := grants.GetGrantsByCategory(cat.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2) // creator's self-grant plus the upserted one

	perm, err := grants.GetPermission(u.ID, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Write, perm)

	updated, err := grants.UpdateGrant(g2.ID, core.None)
	require.NoError(t, err)
	assert.Equal(t, core.None, updated.Permission)

	deleted, err := grants.DeleteGrant(g2.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	perm, err = grants.GetPermission(u.ID, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, core.None, perm)
}

func TestArticleStore(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	categories := NewCategoryStore(db)
	articles := NewArticleStore(db)

	u := insertTestUser(t, users, "author@example.com")
	cat, err := categories.InsertCategory("Ops", "", nil, u.ID)
	require.NoError(t, err)

	a, err := articles.InsertArticle("Backup Runbook", "run the backups", core.FormatMarkdown, &cat.ID, u.ID, false)
	require.NoError(t, err)
	assert.False(t, a.Published)
	require.NotNil(t, a.CategoryID)
	assert.Equal(t, cat.ID, *a.CategoryID)
	assert.Equal(t, a.TsCreated, a.TsChanged)

	newTitle := "Restore Runbook"
	published := true
	a, err = articles.UpdateArticle(a.ID, core.ArticlePatch{Title: &newTitle, Published: &published})
	require.NoError(t, err)
	assert.Equal(t, newTitle, a.Title)
	assert.True(t, a.Published)
	assert.Equal(t, "run the backups", a.Content)

	// patching the category to 0 detaches
	zero := 0
	a, err = articles.UpdateArticle(a.ID, core.ArticlePatch{CategoryID: &zero})
	require.NoError(t, err)
	assert.Nil(t, a.CategoryID)

	byCat, err := articles.GetArticlesByCategory(cat.ID, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, byCat)

	deleted, err := articles.DeleteArticle(a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = articles.DeleteArticle(a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSearchArticles(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	articles := NewArticleStore(db)

	u := insertTestUser(t, users, "author@example.com")

	_, err := articles.InsertArticle("Kubernetes Upgrade", "how to upgrade the cluster", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)
	_, err = articles.InsertArticle("Postgres Tuning", "shared_buffers and KUBERNETES notes", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)
	_, err = articles.InsertArticle("Unrelated", "nothing to see", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)

	// matches title and content, case-insensitively
	found, err := articles.SearchArticles("kubernetes", 100, 0)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = articles.SearchArticles("no such phrase", 100, 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSearchTreatsWildcardsAsLiterals(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	articles := NewArticleStore(db)

	u := insertTestUser(t, users, "author@example.com")

	_, err := articles.InsertArticle("Disk at 90%", "df output", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)
	_, err = articles.InsertArticle("Postgres Tuning", "shared_buffers notes", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)

	// a literal % matches only the article containing one,
	// it must not act as a match-everything wildcard
	found, err := articles.SearchArticles("%", 100, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Disk at 90%", found[0].Title)

	found, err = articles.SearchArticles("90%", 100, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// same for _, which LIKE would treat as a single-char wildcard
	found, err = articles.SearchArticles("_", 100, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Postgres Tuning", found[0].Title)

	found, err = articles.SearchArticles("shared_buffers", 100, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// the escape character itself is searchable too
	_, err = articles.InsertArticle("Paging alert!", "oncall", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)
	found, err = articles.SearchArticles("alert!", 100, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSetTags(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	articles := NewArticleStore(db)
	tags := NewTagStore(db)

	u := insertTestUser(t, users, "author@example.com")
	a, err := articles.InsertArticle("Runbook", "text", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)

	// names are cleaned, duplicates and unusable names collapse
	require.NoError(t, tags.SetTags(a.ID, []string{" Linux ", "linux", "backup", ""}))
	got, err := tags.TagsOf(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup", "linux"}, got)

	// setting replaces the whole set
	require.NoError(t, tags.SetTags(a.ID, []string{"postgres"}))
	got, err = tags.TagsOf(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres"}, got)

	// tag rows are shared, not duplicated
	all, err := tags.GetAllTags(100, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup", "linux", "postgres"}, all)

	// deleting the article drops its tag links
	deleted, err := articles.DeleteArticle(a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	got, err = tags.TagsOf(a.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore(t *testing.T) {

	db := openTestDB(t)
	users := NewUserStore(db)
	articles := NewArticleStore(db)
	files := NewFileStore(db)

	u := insertTestUser(t, users, "uploader@example.com")
	a, err := articles.InsertArticle("Runbook", "text", core.FormatMarkdown, nil, u.ID, true)
	require.NoError(t, err)

	f, err := files.InsertFile(&core.File{
		Filename:     "abc123.pdf",
		OriginalName: "diagram.pdf",
		Path:         "abc123.pdf",
		ContentType:  "application/pdf",
		Size:         42,
		UploadedBy:   u.ID,
		ArticleID:    &a.ID,
		TsCreated:    1700000000,
	})
	require.NoError(t, err)
	assert.NotZero(t, f.ID)

	byArticle, err := files.GetFilesByArticle(a.ID)
	require.NoError(t, err)
	require.Len(t, byArticle, 1)
	assert.Equal(t, "diagram.pdf", byArticle[0].OriginalName)

	deleted, err := files.DeleteFile(f.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = files.GetFile(f.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

package sqldb

import (
	"database/sql"
	"strings"
	"time"

	"kb/core"
)

type ArticleStore struct {
	*sql.DB
	delete     *sql.Stmt
	deleteTags *sql.Stmt
	get        *sql.Stmt
	getAll     *sql.Stmt
	getByCat   *sql.Stmt
	insert     *sql.Stmt
	search     *sql.Stmt
	update     *sql.Stmt
}

const articleCols = "id, title, content, format, category_id, author_id, published, ts_created, ts_changed"

func NewArticleStore(db *sql.DB) *ArticleStore {
	var s = &ArticleStore{}
	s.DB = db
	s.delete = mustPrepare(db, "DELETE FROM article WHERE id = ?")
	s.deleteTags = mustPrepare(db, "DELETE FROM article_tag WHERE article = ?")
	s.get = mustPrepare(db, "SELECT "+articleCols+" FROM article WHERE id = ? LIMIT 1")
	s.getAll = mustPrepare(db, "SELECT "+articleCols+" FROM article ORDER BY ts_changed DESC LIMIT ? OFFSET ?")
	s.getByCat = mustPrepare(db, "SELECT "+articleCols+" FROM article WHERE category_id = ? ORDER BY ts_changed DESC LIMIT ? OFFSET ?")
	s.insert = mustPrepare(db, "INSERT INTO article (title, content, format, category_id, author_id, published, ts_created, ts_changed) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	// the escape char must not be backslash, mysql string literals would eat it
	s.search = mustPrepare(db, "SELECT "+articleCols+" FROM article WHERE LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!' ORDER BY ts_changed DESC LIMIT ? OFFSET ?")
	s.update = mustPrepare(db, "UPDATE article SET title = ?, content = ?, format = ?, category_id = ?, published = ?, ts_changed = ? WHERE id = ?")
	return s
}

func scanArticle(scan func(...interface{}) error) (*core.Article, error) {
	var a = &core.Article{}
	var category sql.NullInt64
	if err := scan(&a.ID, &a.Title, &a.Content, &a.Format, &category, &a.AuthorID, &a.Published, &a.TsCreated, &a.TsChanged); err != nil {
		return nil, notFound(err)
	}
	a.CategoryID = scanNullableID(category)
	return a, nil
}

func (s *ArticleStore) GetArticle(id int) (*core.Article, error) {
	return scanArticle(s.get.QueryRow(id).Scan)
}

func (s *ArticleStore) getMultiple(stmt *sql.Stmt, args ...interface{}) ([]*core.Article, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.Article{}

	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		all = append(all, a)
	}

	return all, rows.Err()
}

func (s *ArticleStore) GetAllArticles(limit, offset int) ([]*core.Article, error) {
	return s.getMultiple(s.getAll, limit, offset)
}

func (s *ArticleStore) GetArticlesByCategory(categoryID, limit, offset int) ([]*core.Article, error) {
	return s.getMultiple(s.getByCat, categoryID, limit, offset)
}

func (s *ArticleStore) InsertArticle(title, content string, format core.Format, categoryID *int, authorID int, published bool) (*core.Article, error) {

	now := time.Now().Unix()

	res, err := s.insert.Exec(title, content, format, nullableID(categoryID), authorID, published, now, now)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetArticle(int(id))
}

func (s *ArticleStore) UpdateArticle(id int, patch core.ArticlePatch) (*core.Article, error) {

	a, err := s.GetArticle(id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Content != nil {
		a.Content = *patch.Content
	}
	if patch.Format != nil {
		a.Format = *patch.Format
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID == 0 {
			a.CategoryID = nil
		} else {
			a.CategoryID = patch.CategoryID
		}
	}
	if patch.Published != nil {
		a.Published = *patch.Published
	}
	a.TsChanged = time.Now().Unix()

	if _, err := s.update.Exec(a.Title, a.Content, a.Format, nullableID(a.CategoryID), a.Published, a.TsChanged, id); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *ArticleStore) DeleteArticle(id int) (bool, error) {

	tx, err := s.Begin()
	if err != nil {
		return false, err
	}

	if _, err := tx.Stmt(s.deleteTags).Exec(id); err != nil {
		tx.Rollback()
		return false, err
	}

	res, err := tx.Stmt(s.delete).Exec(id)
	if err != nil {
		tx.Rollback()
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, err
	}

	return affected > 0, tx.Commit()
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (s *ArticleStore) SearchArticles(q string, limit, offset int) ([]*core.Article, error) {
	// % and _ in the query are literal characters, not LIKE wildcards
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	return s.getMultiple(s.search, pattern, pattern, limit, offset)
}

package sqldb

import (
	"database/sql"
	"errors"

	"kb/core"
)

type TagStore struct {
	*sql.DB
	deleteOf *sql.Stmt
	getAll   *sql.Stmt
	getID    *sql.Stmt
	insert   *sql.Stmt
	link     *sql.Stmt
	tagsOf   *sql.Stmt
}

func NewTagStore(db *sql.DB) *TagStore {
	var s = &TagStore{}
	s.DB = db
	s.deleteOf = mustPrepare(db, "DELETE FROM article_tag WHERE article = ?")
	s.getAll = mustPrepare(db, "SELECT name FROM tag ORDER BY name LIMIT ? OFFSET ?")
	s.getID = mustPrepare(db, "SELECT id FROM tag WHERE name = ? LIMIT 1")
	s.insert = mustPrepare(db, "INSERT INTO tag (name) VALUES (?)")
	s.link = mustPrepare(db, "INSERT INTO article_tag (article, tag) VALUES (?, ?)")
	s.tagsOf = mustPrepare(db, "SELECT t.name FROM tag t, article_tag at WHERE t.id = at.tag AND at.article = ? ORDER BY t.name")
	return s
}

func (s *TagStore) names(stmt *sql.Stmt, args ...interface{}) ([]string, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []string{}

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		all = append(all, name)
	}

	return all, rows.Err()
}

func (s *TagStore) GetAllTags(limit, offset int) ([]string, error) {
	return s.names(s.getAll, limit, offset)
}

func (s *TagStore) TagsOf(articleID int) ([]string, error) {
	return s.names(s.tagsOf, articleID)
}

// SetTags replaces the article's tag set. Unusable names are skipped,
// duplicates collapse.
func (s *TagStore) SetTags(articleID int, tags []string) error {

	tx, err := s.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Stmt(s.deleteOf).Exec(articleID); err != nil {
		tx.Rollback()
		return err
	}

	var seen = map[string]interface{}{}

	for _, tag := range tags {

		tag = core.CleanTag(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		var tagID int64
		err := tx.Stmt(s.getID).QueryRow(tag).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := tx.Stmt(s.insert).Exec(tag)
			if err != nil {
				tx.Rollback()
				return err
			}
			tagID, err = res.LastInsertId()
			if err != nil {
				tx.Rollback()
				return err
			}
		} else if err != nil {
			tx.Rollback()
			return err
		}

		if _, err := tx.Stmt(s.link).Exec(articleID, tagID); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

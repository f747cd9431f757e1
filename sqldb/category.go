package sqldb

import (
	"database/sql"
	"time"

	"kb/core"
)

type CategoryStore struct {
	*sql.DB
	delete        *sql.Stmt
	deleteGrants  *sql.Stmt
	detachArts    *sql.Stmt
	detachFiles   *sql.Stmt
	get           *sql.Stmt
	getAll        *sql.Stmt
	getFor        *sql.Stmt
	grantWrite    *sql.Stmt
	insert        *sql.Stmt
	reparent      *sql.Stmt
	update        *sql.Stmt
}

const categoryCols = "id, name, description, parent_id, created_by, ts_created"

func NewCategoryStore(db *sql.DB) *CategoryStore {
	var s = &CategoryStore{}
	s.DB = db
	s.delete = mustPrepare(db, "DELETE FROM category WHERE id = ?")
	s.deleteGrants = mustPrepare(db, "DELETE FROM grant_rule WHERE category = ?")
	s.detachArts = mustPrepare(db, "UPDATE article SET category_id = NULL WHERE category_id = ?")
	s.detachFiles = mustPrepare(db, "UPDATE file SET category_id = NULL WHERE category_id = ?")
	s.get = mustPrepare(db, "SELECT "+categoryCols+" FROM category WHERE id = ? LIMIT 1")
	s.getAll = mustPrepare(db, "SELECT "+categoryCols+" FROM category ORDER BY name LIMIT ? OFFSET ?")
	// the join can yield a category twice when the user is both creator and grant holder,
	// getMultiple de-duplicates by id
	s.getFor = mustPrepare(db, `SELECT c.id, c.name, c.description, c.parent_id, c.created_by, c.ts_created
		FROM category c
		LEFT JOIN grant_rule g ON g.category = c.id AND g.usr = ?
		WHERE c.created_by = ? OR (g.permission IS NOT NULL AND g.permission > ?)
		ORDER BY c.name LIMIT ? OFFSET ?`)
	s.grantWrite = mustPrepare(db, "INSERT INTO grant_rule (usr, category, permission) VALUES (?, ?, ?)")
	s.insert = mustPrepare(db, "INSERT INTO category (name, description, parent_id, created_by, ts_created) VALUES (?, ?, ?, ?, ?)")
	s.reparent = mustPrepare(db, "UPDATE category SET parent_id = ? WHERE parent_id = ?")
	s.update = mustPrepare(db, "UPDATE category SET name = ?, description = ?, parent_id = ? WHERE id = ?")
	return s
}

func scanCategory(scan func(...interface{}) error) (*core.Category, error) {
	var c = &core.Category{}
	var parent sql.NullInt64
	if err := scan(&c.ID, &c.Name, &c.Description, &parent, &c.CreatedBy, &c.TsCreated); err != nil {
		return nil, notFound(err)
	}
	c.ParentID = scanNullableID(parent)
	return c, nil
}

func (s *CategoryStore) GetCategory(id int) (*core.Category, error) {
	return scanCategory(s.get.QueryRow(id).Scan)
}

func (s *CategoryStore) getMultiple(stmt *sql.Stmt, args ...interface{}) ([]*core.Category, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.Category{}
	var seen = map[int]interface{}{}

	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		all = append(all, c)
	}

	return all, rows.Err()
}

func (s *CategoryStore) GetAllCategories(limit, offset int) ([]*core.Category, error) {
	return s.getMultiple(s.getAll, limit, offset)
}

func (s *CategoryStore) GetCategoriesFor(userID, limit, offset int) ([]*core.Category, error) {
	return s.getMultiple(s.getFor, userID, userID, int(core.None), limit, offset)
}

// InsertCategory creates the category and the creator's write grant in one
// transaction. If the grant insert fails, the category insert is rolled
// back, so a creator can never end up unable to manage their own content.
func (s *CategoryStore) InsertCategory(name, description string, parentID *int, createdBy int) (*core.Category, error) {

	tx, err := s.Begin()
	if err != nil {
		return nil, err
	}

	res, err := tx.Stmt(s.insert).Exec(name, description, nullableID(parentID), createdBy, time.Now().Unix())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if _, err := tx.Stmt(s.grantWrite).Exec(createdBy, id, int(core.Write)); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetCategory(int(id))
}

func (s *CategoryStore) UpdateCategory(id int, patch core.CategoryPatch) (*core.Category, error) {

	c, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.ParentID != nil {
		if *patch.ParentID == 0 {
			c.ParentID = nil
		} else {
			c.ParentID = patch.ParentID
		}
	}

	if _, err := s.update.Exec(c.Name, c.Description, nullableID(c.ParentID), id); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *CategoryStore) DeleteCategory(id int) (bool, error) {

	c, err := s.GetCategory(id)
	if err == core.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	tx, err := s.Begin()
	if err != nil {
		return false, err
	}

	for _, step := range []func() error{
		func() error { _, err := tx.Stmt(s.detachArts).Exec(id); return err },
		func() error { _, err := tx.Stmt(s.detachFiles).Exec(id); return err },
		func() error { _, err := tx.Stmt(s.reparent).Exec(nullableID(c.ParentID), id); return err },
		func() error { _, err := tx.Stmt(s.deleteGrants).Exec(id); return err },
		func() error { _, err := tx.Stmt(s.delete).Exec(id); return err },
	} {
		if err := step(); err != nil {
			tx.Rollback()
			return false, err
		}
	}

	return true, tx.Commit()
}

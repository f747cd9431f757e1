package sqldb

import (
	"database/sql"
	"errors"

	"kb/core"
)

type GrantStore struct {
	*sql.DB
	delete     *sql.Stmt
	get        *sql.Stmt
	getAll     *sql.Stmt
	getByCat   *sql.Stmt
	getByPair  *sql.Stmt
	getPerm    *sql.Stmt
	insert     *sql.Stmt
	updateByID *sql.Stmt
	updatePair *sql.Stmt
}

const grantCols = "id, usr, category, permission"

func NewGrantStore(db *sql.DB) *GrantStore {
	var s = &GrantStore{}
	s.DB = db
	s.delete = mustPrepare(db, "DELETE FROM grant_rule WHERE id = ?")
	s.get = mustPrepare(db, "SELECT "+grantCols+" FROM grant_rule WHERE id = ? LIMIT 1")
	s.getAll = mustPrepare(db, "SELECT "+grantCols+" FROM grant_rule ORDER BY category, usr LIMIT ? OFFSET ?")
	s.getByCat = mustPrepare(db, "SELECT "+grantCols+" FROM grant_rule WHERE category = ? ORDER BY usr")
	s.getByPair = mustPrepare(db, "SELECT "+grantCols+" FROM grant_rule WHERE usr = ? AND category = ? LIMIT 1")
	s.getPerm = mustPrepare(db, "SELECT permission FROM grant_rule WHERE usr = ? AND category = ? LIMIT 1")
	s.insert = mustPrepare(db, "INSERT INTO grant_rule (usr, category, permission) VALUES (?, ?, ?)")
	s.updateByID = mustPrepare(db, "UPDATE grant_rule SET permission = ? WHERE id = ?")
	s.updatePair = mustPrepare(db, "UPDATE grant_rule SET permission = ? WHERE usr = ? AND category = ?")
	return s
}

func (s *GrantStore) scan(row *sql.Row) (*core.Grant, error) {
	var g = &core.Grant{}
	if err := row.Scan(&g.ID, &g.UserID, &g.CategoryID, &g.Permission); err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (s *GrantStore) GetGrant(id int) (*core.Grant, error) {
	return s.scan(s.get.QueryRow(id))
}

func (s *GrantStore) getMultiple(stmt *sql.Stmt, args ...interface{}) ([]*core.Grant, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.Grant{}

	for rows.Next() {
		var g = &core.Grant{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.CategoryID, &g.Permission); err != nil {
			return nil, err
		}
		all = append(all, g)
	}

	return all, rows.Err()
}

func (s *GrantStore) GetAllGrants(limit, offset int) ([]*core.Grant, error) {
	return s.getMultiple(s.getAll, limit, offset)
}

func (s *GrantStore) GetGrantsByCategory(categoryID int) ([]*core.Grant, error) {
	return s.getMultiple(s.getByCat, categoryID)
}

func (s *GrantStore) GetPermission(userID, categoryID int) (core.Permission, error) {

	var perm int
	err := s.getPerm.QueryRow(userID, categoryID).Scan(&perm)
	if errors.Is(err, sql.ErrNoRows) {
		return core.None, nil // no row means no access
	}
	if err != nil {
		return core.None, err
	}

	var p = core.Permission(perm)
	if !p.Valid() {
		return core.None, errors.New("invalid permission")
	}
	return p, nil
}

// SetPermission upserts as UPDATE-then-INSERT inside a transaction, which
// works on both sqlite3 and mysql.
func (s *GrantStore) SetPermission(userID, categoryID int, perm core.Permission) (*core.Grant, error) {

	tx, err := s.Begin()
	if err != nil {
		return nil, err
	}

	res, err := tx.Stmt(s.updatePair).Exec(int(perm), userID, categoryID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if affected == 0 {
		if _, err := tx.Stmt(s.insert).Exec(userID, categoryID, int(perm)); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.scan(s.getByPair.QueryRow(userID, categoryID))
}

func (s *GrantStore) UpdateGrant(id int, perm core.Permission) (*core.Grant, error) {

	if _, err := s.GetGrant(id); err != nil {
		return nil, err
	}

	if _, err := s.updateByID.Exec(int(perm), id); err != nil {
		return nil, err
	}

	return s.GetGrant(id)
}

func (s *GrantStore) DeleteGrant(id int) (bool, error) {

	res, err := s.delete.Exec(id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	return affected > 0, err
}

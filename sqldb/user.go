package sqldb

import (
	"database/sql"
	"time"

	"kb/core"
)

type UserStore struct {
	*sql.DB
	countOwned   *sql.Stmt
	delete       *sql.Stmt
	deleteGrants *sql.Stmt
	get          *sql.Stmt
	getAll       *sql.Stmt
	getByMail    *sql.Stmt
	insert       *sql.Stmt
	setHash      *sql.Stmt
	setMail      *sql.Stmt
}

func NewUserStore(db *sql.DB) *UserStore {
	var s = &UserStore{}
	s.DB = db
	s.countOwned = mustPrepare(db, `SELECT
		(SELECT COUNT(*) FROM category WHERE created_by = ?) +
		(SELECT COUNT(*) FROM article WHERE author_id = ?)`)
	s.delete = mustPrepare(db, "DELETE FROM usr WHERE id = ?")
	s.deleteGrants = mustPrepare(db, "DELETE FROM grant_rule WHERE usr = ?")
	s.get = mustPrepare(db, "SELECT id, mail, hash, role, ts_created FROM usr WHERE id = ? LIMIT 1")
	s.getAll = mustPrepare(db, "SELECT id, mail, hash, role, ts_created FROM usr ORDER BY mail LIMIT ? OFFSET ?")
	s.getByMail = mustPrepare(db, "SELECT id, mail, hash, role, ts_created FROM usr WHERE mail = ? LIMIT 1")
	s.insert = mustPrepare(db, "INSERT INTO usr (mail, hash, role, ts_created) VALUES (?, ?, ?, ?)")
	s.setHash = mustPrepare(db, "UPDATE usr SET hash = ? WHERE id = ?")
	s.setMail = mustPrepare(db, "UPDATE usr SET mail = ? WHERE id = ?")
	return s
}

func (s *UserStore) scan(row *sql.Row) (*core.User, error) {
	var u = &core.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Hash, &u.Role, &u.TsCreated)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *UserStore) GetUser(id int) (*core.User, error) {
	return s.scan(s.get.QueryRow(id))
}

func (s *UserStore) GetUserByEmail(email string) (*core.User, error) {
	return s.scan(s.getByMail.QueryRow(email))
}

func (s *UserStore) GetAllUsers(limit, offset int) ([]*core.User, error) {

	rows, err := s.getAll.Query(limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.User{}

	for rows.Next() {
		var u = &core.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Hash, &u.Role, &u.TsCreated); err != nil {
			return nil, err
		}
		all = append(all, u)
	}

	return all, rows.Err()
}

func (s *UserStore) InsertUser(email, hash string, role core.Role) (*core.User, error) {

	res, err := s.insert.Exec(email, hash, role, time.Now().Unix())
	if err != nil {
		return nil, conflict(err, "email already taken")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetUser(int(id))
}

func (s *UserStore) UpdateUser(id int, patch core.UserPatch) (*core.User, error) {

	if _, err := s.GetUser(id); err != nil {
		return nil, err
	}

	if patch.Email != nil {
		if _, err := s.setMail.Exec(core.CleanEmail(*patch.Email), id); err != nil {
			return nil, conflict(err, "email already taken")
		}
	}

	return s.GetUser(id)
}

func (s *UserStore) SetPasswordHash(id int, hash string) error {
	_, err := s.setHash.Exec(hash, id)
	return err
}

func (s *UserStore) CountOwnedContent(id int) (int, error) {
	var count int
	return count, s.countOwned.QueryRow(id, id).Scan(&count)
}

func (s *UserStore) DeleteUser(id int) (bool, error) {

	tx, err := s.Begin()
	if err != nil {
		return false, err
	}

	if _, err := tx.Stmt(s.deleteGrants).Exec(id); err != nil {
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

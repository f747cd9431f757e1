package sqldb

import (
	"database/sql"
	"time"

	"kb/core"
)

type FileStore struct {
	*sql.DB
	delete   *sql.Stmt
	get      *sql.Stmt
	getAll   *sql.Stmt
	getByArt *sql.Stmt
	getByCat *sql.Stmt
	insert   *sql.Stmt
}

const fileCols = "id, filename, original_name, file_path, file_type, file_size, uploaded_by, article_id, category_id, ts_created"

func NewFileStore(db *sql.DB) *FileStore {
	var s = &FileStore{}
	s.DB = db
	s.delete = mustPrepare(db, "DELETE FROM file WHERE id = ?")
	s.get = mustPrepare(db, "SELECT "+fileCols+" FROM file WHERE id = ? LIMIT 1")
	s.getAll = mustPrepare(db, "SELECT "+fileCols+" FROM file ORDER BY ts_created DESC LIMIT ? OFFSET ?")
	s.getByArt = mustPrepare(db, "SELECT "+fileCols+" FROM file WHERE article_id = ? ORDER BY original_name")
	s.getByCat = mustPrepare(db, "SELECT "+fileCols+" FROM file WHERE category_id = ? ORDER BY original_name")
	s.insert = mustPrepare(db, "INSERT INTO file (filename, original_name, file_path, file_type, file_size, uploaded_by, article_id, category_id, ts_created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	return s
}

func scanFile(scan func(...interface{}) error) (*core.File, error) {
	var f = &core.File{}
	var article, category sql.NullInt64
	if err := scan(&f.ID, &f.Filename, &f.OriginalName, &f.Path, &f.ContentType, &f.Size, &f.UploadedBy, &article, &category, &f.TsCreated); err != nil {
		return nil, notFound(err)
	}
	f.ArticleID = scanNullableID(article)
	f.CategoryID = scanNullableID(category)
	return f, nil
}

func (s *FileStore) GetFile(id int) (*core.File, error) {
	return scanFile(s.get.QueryRow(id).Scan)
}

func (s *FileStore) getMultiple(stmt *sql.Stmt, args ...interface{}) ([]*core.File, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.File{}

	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		all = append(all, f)
	}

	return all, rows.Err()
}

func (s *FileStore) GetAllFiles(limit, offset int) ([]*core.File, error) {
	return s.getMultiple(s.getAll, limit, offset)
}

func (s *FileStore) GetFilesByArticle(articleID int) ([]*core.File, error) {
	return s.getMultiple(s.getByArt, articleID)
}

func (s *FileStore) GetFilesByCategory(categoryID int) ([]*core.File, error) {
	return s.getMultiple(s.getByCat, categoryID)
}

func (s *FileStore) InsertFile(f *core.File) (*core.File, error) {

	res, err := s.insert.Exec(f.Filename, f.OriginalName, f.Path, f.ContentType, f.Size,
		f.UploadedBy, nullableID(f.ArticleID), nullableID(f.CategoryID), time.Now().Unix())
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetFile(int(id))
}

func (s *FileStore) DeleteFile(id int) (bool, error) {

	res, err := s.delete.Exec(id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	return affected > 0, err
}

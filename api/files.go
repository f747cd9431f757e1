package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"kb/core"
	"kb/upload"
)

const maxUploadSize = 32 << 20 // bytes

func (s *Server) uploadFile(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	req.Body = http.MaxBytesReader(w, req.Body, maxUploadSize)
	if err := req.ParseMultipartForm(maxUploadSize); err != nil {
		return core.Validationf("bad multipart request")
	}

	src, header, err := req.FormFile("file")
	if err != nil {
		return core.Validationf("missing file field")
	}
	defer src.Close()

	originalName, err := upload.CleanFilename(header.Filename)
	if err != nil {
		return core.Validationf("bad filename")
	}

	var articleID, categoryID *int
	if raw := req.FormValue("articleId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return core.Validationf("bad article id")
		}
		articleID = &id
	}
	if raw := req.FormValue("categoryId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return core.Validationf("bad category id")
		}
		categoryID = &id
	}

	// attaching to an article requires write access to the article, attaching
	// to a category requires a write grant there
	if articleID != nil {
		a, err := s.db.GetArticle(*articleID)
		if err != nil {
			return core.Validationf("article does not exist")
		}
		ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpWrite)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrUnauthorized
		}
		if categoryID == nil {
			categoryID = a.CategoryID
		}
	} else if categoryID != nil {
		if _, err := s.db.GetCategory(*categoryID); err != nil {
			return core.Validationf("category does not exist")
		}
		if !ctx.user.IsAdmin() {
			perm, err := s.db.ResolvePermission(ctx.user, *categoryID)
			if err != nil {
				return err
			}
			if perm < core.Write {
				return core.ErrUnauthorized
			}
		}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(originalName))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// the stored name is random so uploads can never collide or be guessed
	storedName := uuid.NewString() + filepath.Ext(originalName)

	size, err := s.db.Uploads.Put(req.Context(), storedName, src)
	if err != nil {
		return err
	}

	f, err := s.db.InsertFile(&core.File{
		Filename:     storedName,
		OriginalName: originalName,
		Path:         storedName,
		ContentType:  contentType,
		Size:         size,
		UploadedBy:   ctx.user.ID,
		ArticleID:    articleID,
		CategoryID:   categoryID,
		TsCreated:    time.Now().Unix(),
	})
	if err != nil {
		// don't leave an orphaned blob behind
		if delErr := s.db.Uploads.Delete(req.Context(), storedName); delErr != nil {
			s.log.Warn().Err(delErr).Str("name", storedName).Msg("removing orphaned upload failed")
		}
		return err
	}

	writeJSON(w, http.StatusCreated, f)
	return nil
}

// canReadFile maps file visibility onto the entity the file is attached to.
// An unattached file is private to its uploader.
func (s *Server) canReadFile(ctx *context, f *core.File) (bool, error) {

	if ctx.user.IsAdmin() || (ctx.user != nil && ctx.user.ID == f.UploadedBy) {
		return true, nil
	}

	if f.ArticleID != nil {
		a, err := s.db.GetArticle(*f.ArticleID)
		if err == core.ErrNotFound {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return s.db.CanAccessArticle(ctx.user, a, core.OpRead)
	}

	if f.CategoryID != nil {
		perm, err := s.db.ResolvePermission(ctx.user, *f.CategoryID)
		if err != nil {
			return false, err
		}
		return perm >= core.Read, nil
	}

	return false, nil
}

func (s *Server) listFiles(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	var files []*core.File
	var err error

	switch {
	case req.URL.Query().Get("articleId") != "":
		articleID, convErr := strconv.Atoi(req.URL.Query().Get("articleId"))
		if convErr != nil || articleID <= 0 {
			return core.Validationf("bad article id")
		}
		files, err = s.db.GetFilesByArticle(articleID)
	case req.URL.Query().Get("categoryId") != "":
		categoryID, convErr := strconv.Atoi(req.URL.Query().Get("categoryId"))
		if convErr != nil || categoryID <= 0 {
			return core.Validationf("bad category id")
		}
		files, err = s.db.GetFilesByCategory(categoryID)
	default:
		limit, offset := pagination(req)
		files, err = s.db.GetAllFiles(limit, offset)
	}
	if err != nil {
		return err
	}

	var visible = []*core.File{}
	for _, f := range files {
		ok, err := s.canReadFile(ctx, f)
		if err != nil {
			return err
		}
		if ok {
			visible = append(visible, f)
		}
	}

	writeJSON(w, http.StatusOK, visible)
	return nil
}

func (s *Server) getFile(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	f, err := s.db.GetFile(id)
	if err != nil {
		return err
	}

	ok, err := s.canReadFile(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	writeJSON(w, http.StatusOK, f)
	return nil
}

func (s *Server) downloadFile(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	f, err := s.db.GetFile(id)
	if err != nil {
		return err
	}

	ok, err := s.canReadFile(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	src, err := s.db.Uploads.Open(req.Context(), f.Filename)
	if err != nil {
		return err
	}
	defer src.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.OriginalName))
	_, err = io.Copy(w, src)
	return err
}

func (s *Server) deleteFile(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	f, err := s.db.GetFile(id)
	if err != nil {
		return err
	}

	if !ctx.user.IsAdmin() && ctx.user.ID != f.UploadedBy {
		return core.ErrUnauthorized
	}

	deleted, err := s.db.DeleteFile(id)
	if err != nil {
		return err
	}
	if !deleted {
		return core.ErrNotFound
	}

	// the row is gone, a failed blob delete only leaks storage
	if err := s.db.Uploads.Delete(req.Context(), f.Filename); err != nil {
		s.log.Warn().Err(err).Str("name", f.Filename).Msg("deleting blob failed")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

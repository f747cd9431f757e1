// Package api serves the JSON REST interface.
//
// Handlers return errors; the middleware maps them to HTTP statuses:
// validation 400, no identity 401, denial 403, missing row 404, unique
// conflict 409, anything else 500 with a generic body. Every entity handler
// checks existence before authorization, so a nonexistent id is 404 even
// for a caller who would have been denied.
package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"kb/core"
)

type Server struct {
	db  *core.CoreDB
	log zerolog.Logger
}

func NewServer(db *core.CoreDB) *Server {
	return &Server{
		db:  db,
		log: db.Log,
	}
}

// Router returns the API handler, not yet wrapped in session middleware.
// The caller must wrap it with db.SessionManager.LoadAndSave.
func (s *Server) Router() http.Handler {

	var router = httprouter.New()

	// public
	router.POST("/api/register", s.handle(false, s.register))
	router.POST("/api/login", s.handle(false, s.login))

	// session
	router.POST("/api/logout", s.handle(true, s.logout))
	router.GET("/api/me", s.handle(true, s.me))

	// users
	router.GET("/api/users", s.handle(true, s.listUsers))
	router.GET("/api/users/:id", s.handle(true, s.getUser))
	router.PUT("/api/users/:id", s.handle(true, s.updateUser))
	router.PUT("/api/users/:id/password", s.handle(true, s.updateUserPassword))
	router.DELETE("/api/users/:id", s.handle(true, s.deleteUser))

	// categories
	router.GET("/api/categories", s.handle(true, s.listCategories))
	router.POST("/api/categories", s.handle(true, s.createCategory))
	router.GET("/api/categories/:id", s.handle(true, s.getCategory))
	router.PUT("/api/categories/:id", s.handle(true, s.updateCategory))
	router.DELETE("/api/categories/:id", s.handle(true, s.deleteCategory))

	// articles
	router.GET("/api/articles", s.handle(true, s.listArticles))
	router.POST("/api/articles", s.handle(true, s.createArticle))
	router.GET("/api/articles/:id", s.handle(true, s.getArticle))
	router.PUT("/api/articles/:id", s.handle(true, s.updateArticle))
	router.DELETE("/api/articles/:id", s.handle(true, s.deleteArticle))
	router.GET("/api/articles/:id/rendered", s.handle(true, s.renderArticle))
	router.GET("/api/articles/:id/tags", s.handle(true, s.getArticleTags))
	router.PUT("/api/articles/:id/tags", s.handle(true, s.setArticleTags))
	router.GET("/api/search", s.handle(true, s.searchArticles))
	router.GET("/api/tags", s.handle(true, s.listTags))

	// permissions
	router.GET("/api/permissions", s.handle(true, s.listGrants))
	router.POST("/api/permissions", s.handle(true, s.createGrant))
	router.PUT("/api/permissions/:id", s.handle(true, s.updateGrant))
	router.DELETE("/api/permissions/:id", s.handle(true, s.deleteGrant))

	// files
	router.POST("/api/files/upload", s.handle(true, s.uploadFile))
	router.GET("/api/files", s.handle(true, s.listFiles))
	router.GET("/api/files/:id", s.handle(true, s.getFile))
	router.GET("/api/files/:id/download", s.handle(true, s.downloadFile))
	router.DELETE("/api/files/:id", s.handle(true, s.deleteFile))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "not found"})
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "method not allowed"})
	})

	return router
}

// context carries the request-scoped identity. user is nil when the request
// is unauthenticated.
type context struct {
	user *core.User
}

type handlerFunc func(http.ResponseWriter, *http.Request, *context, httprouter.Params) error

func (s *Server) handle(requireLoggedIn bool, f handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var start = time.Now()
		var ctx = &context{}

		if uid := s.db.SessionManager.GetInt(req.Context(), "uid"); uid != 0 {
			u, err := s.db.GetUser(uid)
			if u != nil && err == nil {
				ctx.user = u
			}
			// a vanished account behaves like no login
		}

		var err error
		if requireLoggedIn && ctx.user == nil {
			err = core.ErrAuth
		} else {
			err = f(w, req, ctx, params)
		}
		if err != nil {
			s.writeError(w, req, err)
		}

		s.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, req *http.Request, err error) {

	var validationErr *core.ValidationError
	var conflictErr *core.ConflictError

	var status int
	var message string

	switch {
	case errors.As(err, &validationErr):
		status, message = http.StatusBadRequest, validationErr.Message
	case errors.Is(err, core.ErrEmptyPassword):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrAuth):
		status, message = http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, core.ErrUnauthorized):
		// a single opaque denial, never say why
		status, message = http.StatusForbidden, "unauthorized"
	case errors.Is(err, core.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		status, message = http.StatusNotFound, "not found"
	case errors.As(err, &conflictErr):
		status, message = http.StatusConflict, conflictErr.Message
	default:
		status, message = http.StatusInternalServerError, "internal server error"
		s.log.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
	}

	writeJSON(w, status, errorBody{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return core.Validationf("malformed request body")
	}
	return nil
}

// intParam reads a numeric path parameter. An unparseable id can not name
// any row, so it reports not found rather than a validation failure.
func intParam(params httprouter.Params, name string) (int, error) {
	id, err := strconv.Atoi(params.ByName(name))
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func pagination(req *http.Request) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(req.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(req.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return
}

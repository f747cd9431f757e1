package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"gitlab.com/golang-commonmark/markdown"

	"kb/core"
)

var commonMark = markdown.New(markdown.HTML(true), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

func (s *Server) listArticles(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	limit, offset := pagination(req)

	var articles []*core.Article
	var err error
	if raw := req.URL.Query().Get("categoryId"); raw != "" {
		categoryID, convErr := strconv.Atoi(raw)
		if convErr != nil || categoryID <= 0 {
			return core.Validationf("bad category id")
		}
		articles, err = s.db.GetArticlesByCategory(categoryID, limit, offset)
	} else {
		articles, err = s.db.GetAllArticles(limit, offset)
	}
	if err != nil {
		return err
	}

	articles, err = s.db.FilterReadableArticles(ctx.user, articles)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, articles)
	return nil
}

type articleInput struct {
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	Format     core.Format `json:"format"`
	CategoryID *int        `json:"categoryId"`
	Published  bool        `json:"published"`
}

func (s *Server) createArticle(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	var body articleInput
	if err := readJSON(req, &body); err != nil {
		return err
	}
	if err := core.ValidateArticleTitle(body.Title); err != nil {
		return err
	}
	if body.Format == "" {
		body.Format = core.FormatHTML
	}
	if !body.Format.Valid() {
		return core.Validationf("unknown format %q", body.Format)
	}

	// writing into a category requires a write grant there
	if body.CategoryID != nil {
		if _, err := s.db.GetCategory(*body.CategoryID); err != nil {
			return core.Validationf("category does not exist")
		}
		if !ctx.user.IsAdmin() {
			perm, err := s.db.ResolvePermission(ctx.user, *body.CategoryID)
			if err != nil {
				return err
			}
			if perm < core.Write {
				return core.ErrUnauthorized
			}
		}
	}

	a, err := s.db.InsertArticle(body.Title, body.Content, body.Format, body.CategoryID, ctx.user.ID, body.Published)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, a)
	return nil
}

func (s *Server) getArticle(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	a, err := s.db.GetArticle(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpRead)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	writeJSON(w, http.StatusOK, a)
	return nil
}

func (s *Server) updateArticle(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	a, err := s.db.GetArticle(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpWrite)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	var patch core.ArticlePatch
	if err := readJSON(req, &patch); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	// moving into another category requires a write grant there too
	if patch.CategoryID != nil && *patch.CategoryID != 0 {
		if _, err := s.db.GetCategory(*patch.CategoryID); err != nil {
			return core.Validationf("category does not exist")
		}
		if !ctx.user.IsAdmin() {
			perm, err := s.db.ResolvePermission(ctx.user, *patch.CategoryID)
			if err != nil {
				return err
			}
			if perm < core.Write {
				return core.ErrUnauthorized
			}
		}
	}

	a, err = s.db.UpdateArticle(id, patch)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, a)
	return nil
}

func (s *Server) deleteArticle(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	a, err := s.db.GetArticle(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpDelete)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	deleted, err := s.db.DeleteArticle(id)
	if err != nil {
		return err
	}
	if !deleted {
		return core.ErrNotFound
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type renderedArticle struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

func (s *Server) renderArticle(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	a, err := s.db.GetArticle(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpRead)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	var html string
	switch a.Format {
	case core.FormatMarkdown:
		html = commonMark.RenderToString([]byte(a.Content))
	default:
		html = a.Content
	}

	writeJSON(w, http.StatusOK, renderedArticle{ID: a.ID, Title: a.Title, HTML: html})
	return nil
}

func (s *Server) getArticleTags(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	a, err := s.db.GetArticle(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpRead)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	tags, err := s.db.TagsOf(a.ID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, tags)
	return nil
}

type tagInput struct {
	Tags []string `json:"tags"`
}

func (s *Server) setArticleTags(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	a, err := s.db.GetArticle(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessArticle(ctx.user, a, core.OpWrite)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	var body tagInput
	if err := readJSON(req, &body); err != nil {
		return err
	}
	if len(body.Tags) > 32 {
		return core.Validationf("too many tags")
	}

	if err := s.db.SetTags(a.ID, body.Tags); err != nil {
		return err
	}

	tags, err := s.db.TagsOf(a.ID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, tags)
	return nil
}

func (s *Server) searchArticles(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	q := strings.TrimSpace(req.URL.Query().Get("q"))
	if q == "" {
		return core.Validationf("query is required")
	}

	limit, offset := pagination(req)

	articles, err := s.db.SearchArticles(q, limit, offset)
	if err != nil {
		return err
	}

	articles, err = s.db.FilterReadableArticles(ctx.user, articles)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, articles)
	return nil
}

func (s *Server) listTags(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	limit, offset := pagination(req)

	tags, err := s.db.GetAllTags(limit, offset)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, tags)
	return nil
}

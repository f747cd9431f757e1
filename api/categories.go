package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"kb/core"
)

func (s *Server) listCategories(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	limit, offset := pagination(req)

	categories, err := s.db.VisibleCategories(ctx.user, limit, offset)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, categories)
	return nil
}

type categoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int   `json:"parentId"`
}

func (s *Server) createCategory(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	var body categoryInput
	if err := readJSON(req, &body); err != nil {
		return err
	}
	if err := core.ValidateCategoryName(body.Name); err != nil {
		return err
	}
	if body.ParentID != nil {
		if _, err := s.db.GetCategory(*body.ParentID); err != nil {
			return core.Validationf("parent category does not exist")
		}
	}

	c, err := s.db.InsertCategory(body.Name, body.Description, body.ParentID, ctx.user.ID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, c)
	return nil
}

func (s *Server) getCategory(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	c, err := s.db.GetCategory(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessCategory(ctx.user, c, core.OpRead)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	writeJSON(w, http.StatusOK, c)
	return nil
}

func (s *Server) updateCategory(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	c, err := s.db.GetCategory(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessCategory(ctx.user, c, core.OpWrite)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	var patch core.CategoryPatch
	if err := readJSON(req, &patch); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	if patch.ParentID != nil && *patch.ParentID != 0 {
		if err := s.checkParent(id, *patch.ParentID); err != nil {
			return err
		}
	}

	c, err = s.db.UpdateCategory(id, patch)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, c)
	return nil
}

// checkParent refuses a new parent that does not exist or that would put
// the category below itself.
func (s *Server) checkParent(id, newParentID int) error {

	for ancestorID, depth := newParentID, 0; ; depth++ {

		if depth > 16 {
			return core.Validationf("category tree too deep")
		}

		if ancestorID == id {
			return core.Validationf("can't move category below itself")
		}

		ancestor, err := s.db.GetCategory(ancestorID)
		if err == core.ErrNotFound {
			if depth == 0 {
				return core.Validationf("parent category does not exist")
			}
			return nil // broken ancestry elsewhere is not this request's problem
		}
		if err != nil {
			return err
		}

		if ancestor.ParentID == nil {
			return nil
		}
		ancestorID = *ancestor.ParentID
	}
}

func (s *Server) deleteCategory(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	c, err := s.db.GetCategory(id)
	if err != nil {
		return err
	}

	ok, err := s.db.CanAccessCategory(ctx.user, c, core.OpDelete)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}

	deleted, err := s.db.DeleteCategory(id)
	if err != nil {
		return err
	}
	if !deleted {
		return core.ErrNotFound
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

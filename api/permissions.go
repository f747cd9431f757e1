package api

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"kb/core"
)

// The permission table is admin territory. Non-admins only ever see its
// effects through the resolver.

func (s *Server) listGrants(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	if raw := req.URL.Query().Get("categoryId"); raw != "" {
		categoryID, err := strconv.Atoi(raw)
		if err != nil || categoryID <= 0 {
			return core.Validationf("bad category id")
		}
		grants, err := s.db.GetGrantsByCategory(categoryID)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, grants)
		return nil
	}

	limit, offset := pagination(req)
	grants, err := s.db.GetAllGrants(limit, offset)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, grants)
	return nil
}

type grantInput struct {
	UserID     int             `json:"userId"`
	CategoryID int             `json:"categoryId"`
	Permission core.Permission `json:"permission"`
}

func (s *Server) createGrant(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	var body grantInput
	if err := readJSON(req, &body); err != nil {
		return err
	}
	if !body.Permission.Valid() {
		return core.Validationf("unknown permission")
	}

	if _, err := s.db.GetUser(body.UserID); err != nil {
		return core.Validationf("user does not exist")
	}
	if _, err := s.db.GetCategory(body.CategoryID); err != nil {
		return core.Validationf("category does not exist")
	}

	g, err := s.db.SetPermission(body.UserID, body.CategoryID, body.Permission)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, g)
	return nil
}

type grantUpdate struct {
	Permission core.Permission `json:"permission"`
}

func (s *Server) updateGrant(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	if _, err := s.db.GetGrant(id); err != nil {
		return err
	}

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	var body grantUpdate
	if err := readJSON(req, &body); err != nil {
		return err
	}
	if !body.Permission.Valid() {
		return core.Validationf("unknown permission")
	}

	g, err := s.db.UpdateGrant(id, body.Permission)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, g)
	return nil
}

func (s *Server) deleteGrant(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	if _, err := s.db.GetGrant(id); err != nil {
		return err
	}

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	deleted, err := s.db.DeleteGrant(id)
	if err != nil {
		return err
	}
	if !deleted {
		return core.ErrNotFound
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

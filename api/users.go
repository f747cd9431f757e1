package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"kb/core"
)

func (s *Server) listUsers(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	limit, offset := pagination(req)
	users, err := s.db.GetAllUsers(limit, offset)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, users)
	return nil
}

func (s *Server) getUser(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	u, err := s.db.GetUser(id)
	if err != nil {
		return err
	}

	if !ctx.user.IsAdmin() && ctx.user.ID != u.ID {
		return core.ErrUnauthorized
	}

	writeJSON(w, http.StatusOK, u)
	return nil
}

func (s *Server) updateUser(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	if _, err := s.db.GetUser(id); err != nil {
		return err
	}

	if !ctx.user.IsAdmin() && ctx.user.ID != id {
		return core.ErrUnauthorized
	}

	var patch core.UserPatch
	if err := readJSON(req, &patch); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	u, err := s.db.UpdateUser(id, patch)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, u)
	return nil
}

type passwordChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (s *Server) updateUserPassword(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	u, err := s.db.GetUser(id)
	if err != nil {
		return err
	}

	var body passwordChange
	if err := readJSON(req, &body); err != nil {
		return err
	}

	switch {
	case ctx.user.ID == u.ID:
		// changing your own password requires the old one, even for admins
		if err := s.db.ChangePassword(u, body.Old, body.New); err != nil {
			return err
		}
	case ctx.user.IsAdmin():
		if err := s.db.SetPassword(u, body.New); err != nil {
			return err
		}
	default:
		return core.ErrUnauthorized
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) deleteUser(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := intParam(params, "id")
	if err != nil {
		return err
	}

	if _, err := s.db.GetUser(id); err != nil {
		return err
	}

	if !ctx.user.IsAdmin() {
		return core.ErrUnauthorized
	}

	if ctx.user.ID == id {
		return core.Validationf("you can't delete yourself")
	}

	owned, err := s.db.CountOwnedContent(id)
	if err != nil {
		return err
	}
	if owned > 0 {
		return core.Conflictf("user still owns %d categories or articles", owned)
	}

	deleted, err := s.db.DeleteUser(id)
	if err != nil {
		return err
	}
	if !deleted {
		return core.ErrNotFound
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

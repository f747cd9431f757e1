package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"kb/core"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	var body credentials
	if err := readJSON(req, &body); err != nil {
		return err
	}

	u, err := s.db.Login(body.Email, body.Password)
	if err != nil {
		return err
	}

	// a fresh token on privilege change prevents session fixation
	if err := s.db.SessionManager.RenewToken(req.Context()); err != nil {
		return err
	}
	s.db.SessionManager.Put(req.Context(), "uid", u.ID)

	writeJSON(w, http.StatusOK, u)
	return nil
}

func (s *Server) logout(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	if err := s.db.SessionManager.Destroy(req.Context()); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type registration struct {
	credentials
	Role core.Role `json:"role"`
}

func (s *Server) register(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	var body registration
	if err := readJSON(req, &body); err != nil {
		return err
	}

	// only an admin may choose a role, anonymous registration is always "user"
	var role = core.RoleUser
	if body.Role != "" && ctx.user.IsAdmin() {
		role = body.Role
	}

	u, err := s.db.Register(body.Email, body.Password, role)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, u)
	return nil
}

func (s *Server) me(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {
	writeJSON(w, http.StatusOK, ctx.user)
	return nil
}

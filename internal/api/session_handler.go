package api

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool       `json:"success"`
	User    *core.User `json:"user"`
}

// LoginHandler checks credentials and opens a cookie session.
func LoginHandler(users core.UserStorer, store sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &LoginRequest{}
		if err := decodeJSON(r, req); err != nil {
			renderError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			renderError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := users.Authenticate(req.Email, req.Password)
		if err != nil {
			log.Error().Err(err).Str("service", "api").Msg("can't authenticate user")
			renderError(w, http.StatusInternalServerError, "login failed")
			return
		}
		if user == nil {
			renderError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		session, _ := store.Get(r, sessionName)
		session.Values[sessionUserIDKey] = user.ID
		if err := session.Save(r, w); err != nil {
			log.Error().Err(err).Str("service", "api").Msg("can't save session")
			renderError(w, http.StatusInternalServerError, "login failed")
			return
		}

		renderJSON(w, http.StatusOK, LoginResponse{Success: true, User: user})
	}
}

// LogoutHandler expires the cookie session.
func LogoutHandler(store sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := store.Get(r, sessionName)
		delete(session.Values, sessionUserIDKey)
		session.Options.MaxAge = -1

		if err := session.Save(r, w); err != nil {
			log.Error().Err(err).Str("service", "api").Msg("can't expire session")
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

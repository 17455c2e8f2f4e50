package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

// UsersByRoleHandler lists users of one role ordered by username.
func UsersByRoleHandler(users core.UserStorer, role core.UserRoleName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.FindByRole(role)
		if err != nil {
			log.Error().Err(err).Str("service", "api").Str("role", string(role)).Msg("can't list users")
			renderError(w, http.StatusInternalServerError, "error retrieving users")
			return
		}

		renderJSON(w, http.StatusOK, list)
	}
}

func CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := userFromRequest(r)
		if err != nil {
			renderError(w, http.StatusUnauthorized, err.Error())
			return
		}

		renderJSON(w, http.StatusOK, user)
	}
}

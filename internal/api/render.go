package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string      `json:"message"`
	Query   interface{} `json:"query,omitempty"`
}

func renderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("service", "api").Msg("can't encode response")
	}
}

func renderError(w http.ResponseWriter, status int, message string) {
	renderJSON(w, status, errorResponse{Message: message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	return json.NewDecoder(r.Body).Decode(v)
}

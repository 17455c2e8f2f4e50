package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

type ChatResponse struct {
	Success bool              `json:"success"`
	Chat    *core.ChatMessage `json:"chat"`
}

type CallLogResponse struct {
	Success bool          `json:"success"`
	CallLog *core.CallLog `json:"callLog"`
}

func ChatCreateHandler(chats core.ChatDBStorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg := &core.ChatMessage{}
		if err := decodeJSON(r, msg); err != nil {
			renderError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := msg.Validate(); err != nil {
			renderError(w, http.StatusBadRequest, err.Error())
			return
		}

		msg, err := chats.Save(msg)
		if err != nil {
			log.Error().Err(err).Str("service", "api").Msg("can't save chat message")
			renderError(w, http.StatusInternalServerError, "failed to save chat message")
			return
		}

		renderJSON(w, http.StatusCreated, ChatResponse{Success: true, Chat: msg})
	}
}

func ChatIndexHandler(chats core.ChatDBStorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if param := r.URL.Query().Get("limit"); param != "" {
			n, err := strconv.Atoi(param)
			if err != nil || n < 0 {
				renderError(w, http.StatusBadRequest, "limit must be a positive number")
				return
			}
			limit = n
		}

		messages, err := chats.Recent(limit)
		if err != nil {
			log.Error().Err(err).Str("service", "api").Msg("can't load chat messages")
			renderError(w, http.StatusInternalServerError, "failed to load chat messages")
			return
		}

		renderJSON(w, http.StatusOK, messages)
	}
}

func CallLogCreateHandler(calls core.CallLogDBStorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call := &core.CallLog{}
		if err := decodeJSON(r, call); err != nil {
			renderError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := call.Validate(); err != nil {
			renderError(w, http.StatusBadRequest, err.Error())
			return
		}

		call, err := calls.Save(call)
		if err != nil {
			log.Error().Err(err).Str("service", "api").Msg("can't save call log")
			renderError(w, http.StatusInternalServerError, "failed to save call log")
			return
		}

		renderJSON(w, http.StatusCreated, CallLogResponse{Success: true, CallLog: call})
	}
}

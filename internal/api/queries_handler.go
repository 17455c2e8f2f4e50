package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

type QueryCreateRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type QueryRespondRequest struct {
	Response string `json:"response"`
}

type QueryStatusRequest struct {
	Status string `json:"status"`
}

// QueriesHandler serves patient to doctor queries.
type QueriesHandler struct {
	queries core.QueriesDBStorer
	users   core.UserStorer
}

func NewQueriesHandler(queries core.QueriesDBStorer, users core.UserStorer) *QueriesHandler {
	return &QueriesHandler{queries: queries, users: users}
}

func (h *QueriesHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/sent", h.Sent)
	r.With(RequireRole(core.RoleDoctor)).Get("/received", h.Received)
	r.Get("/{id}", h.Show)
	r.With(RequireRole(core.RoleDoctor)).Post("/{id}/respond", h.Respond)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

func (h *QueriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r)
	if err != nil {
		renderError(w, http.StatusUnauthorized, err.Error())
		return
	}

	req := &QueryCreateRequest{}
	if err := decodeJSON(r, req); err != nil || req.To == "" || req.Message == "" {
		renderError(w, http.StatusBadRequest, "to and message are required")
		return
	}

	recipient, err := h.users.FindByEmail(req.To)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		h.serverError(w, err, "can't find recipient")
		return
	}
	if recipient == nil || !recipient.IsDoctor() {
		renderError(w, http.StatusBadRequest, "recipient doctor not found")
		return
	}

	q, err := h.queries.Create(&core.Query{
		From:    user.Email,
		To:      recipient.Email,
		Message: req.Message,
	})
	if err != nil {
		h.serverError(w, err, "can't create query")
		return
	}

	renderJSON(w, http.StatusCreated, q)
}

func (h *QueriesHandler) Sent(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r)
	if err != nil {
		renderError(w, http.StatusUnauthorized, err.Error())
		return
	}

	list, err := h.queries.Sent(user.Email)
	if err != nil {
		h.serverError(w, err, "can't list sent queries")
		return
	}

	renderJSON(w, http.StatusOK, list)
}

func (h *QueriesHandler) Received(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r)
	if err != nil {
		renderError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var status core.QueryStatus
	if param := r.URL.Query().Get("status"); param != "" {
		status, err = core.ParseQueryStatus(param)
		if err != nil {
			renderError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	list, err := h.queries.Received(user.Email, status)
	if err != nil {
		h.serverError(w, err, "can't list received queries")
		return
	}

	renderJSON(w, http.StatusOK, list)
}

// Show marks an unread query as read when its recipient opens it.
func (h *QueriesHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, q, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if q.Status == core.QueryUnread && q.To == user.Email {
		updated, err := h.queries.SetStatus(q.ID, core.QueryRead)
		if err != nil {
			h.serverError(w, err, "can't mark query as read")
			return
		}
		q = updated
	}

	renderJSON(w, http.StatusOK, q)
}

func (h *QueriesHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r)
	if err != nil {
		renderError(w, http.StatusUnauthorized, err.Error())
		return
	}

	req := &QueryRespondRequest{}
	if err := decodeJSON(r, req); err != nil || req.Response == "" {
		renderError(w, http.StatusBadRequest, "response is required")
		return
	}

	q, ok := h.find(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if q.To != user.Email {
		renderError(w, http.StatusForbidden, "not authorized to respond to this query")
		return
	}

	q, err = h.queries.Respond(q.ID, req.Response)
	if err != nil {
		h.serverError(w, err, "can't respond to query")
		return
	}

	renderJSON(w, http.StatusOK, messageResponse{Message: "response sent successfully", Query: q})
}

func (h *QueriesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	req := &QueryStatusRequest{}
	if err := decodeJSON(r, req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := core.ParseQueryStatus(req.Status)
	if err != nil {
		renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, q, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	q, err = h.queries.SetStatus(q.ID, status)
	if err != nil {
		h.serverError(w, err, "can't update query status")
		return
	}

	renderJSON(w, http.StatusOK, messageResponse{Message: "query status updated", Query: q})
}

func (h *QueriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, q, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	deleted, err := h.queries.Delete(q.ID)
	if err != nil {
		h.serverError(w, err, "can't delete query")
		return
	}
	if !deleted {
		renderError(w, http.StatusNotFound, "query not found")
		return
	}

	renderJSON(w, http.StatusOK, messageResponse{Message: "query deleted successfully"})
}

// loadVisible finds the query in the URL and checks the current user is a
// party to it.
func (h *QueriesHandler) loadVisible(w http.ResponseWriter, r *http.Request) (*core.User, *core.Query, bool) {
	user, err := userFromRequest(r)
	if err != nil {
		renderError(w, http.StatusUnauthorized, err.Error())
		return nil, nil, false
	}

	q, ok := h.find(w, chi.URLParam(r, "id"))
	if !ok {
		return nil, nil, false
	}
	if !q.CanView(user.Email) {
		renderError(w, http.StatusForbidden, "not authorized to view this query")
		return nil, nil, false
	}

	return user, q, true
}

func (h *QueriesHandler) find(w http.ResponseWriter, id string) (*core.Query, bool) {
	q, err := h.queries.Find(id)
	if errors.Is(err, sql.ErrNoRows) {
		renderError(w, http.StatusNotFound, "query not found")
		return nil, false
	}
	if err != nil {
		h.serverError(w, err, "can't find query")
		return nil, false
	}

	return q, true
}

func (h *QueriesHandler) serverError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Str("service", "api").Msg(msg)
	renderError(w, http.StatusInternalServerError, "error processing query")
}

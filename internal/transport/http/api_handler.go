package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qa-live-service/internal/app"
	"qa-live-service/internal/domain"
)

// APIHandler serves the REST surface of the live question service.
type APIHandler struct {
	service *app.QAService
	logger  *slog.Logger
}

func NewAPIHandler(service *app.QAService, logger *slog.Logger) *APIHandler {
	return &APIHandler{service: service, logger: logger}
}

type openRequest struct {
	QuestionID      string `json:"questionId"`
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
}

type submitRequest struct {
	ParticipantID     string   `json:"participantId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

type participantRequest struct {
	UserID string        `json:"userId"`
	Email  string        `json:"email"`
	Status domain.Status `json:"status"`
}

func (h *APIHandler) getState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.CurrentState(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) openQuestion(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decode(w, r, &req) {
		return
	}
	groupID := chi.URLParam(r, "groupID")
	actor := principalFrom(r.Context())

	var (
		state domain.GroupState
		err   error
	)
	if req.ExpectedVersion != nil {
		state, err = h.service.OpenQuestionAt(r.Context(), actor, groupID, req.QuestionID, *req.ExpectedVersion)
	} else {
		state, err = h.service.OpenQuestion(r.Context(), actor, groupID, req.QuestionID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) closeQuestion(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.CloseQuestion(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) clearQuestion(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.ClearQuestion(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.service.SubmitAnswer(r.Context(), principalFrom(r.Context()),
		chi.URLParam(r, "groupID"), req.ParticipantID, req.SelectedOptionIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *APIHandler) listResponses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	page, err := h.service.ListResponses(r.Context(), domain.ResponseQuery{
		GroupID:       chi.URLParam(r, "groupID"),
		ParticipantID: q.Get("participantId"),
		SessionID:     q.Get("sessionId"),
		QuestionID:    q.Get("questionId"),
		Limit:         limit,
		Cursor:        q.Get("cursor"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *APIHandler) listScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scores, err := h.service.ListSessionScores(r.Context(), chi.URLParam(r, "groupID"), q.Get("participantId"), q.Get("sessionId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *APIHandler) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.ListParticipants(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

func (h *APIHandler) putParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !decode(w, r, &req) {
		return
	}
	participant, err := h.service.RegisterParticipant(r.Context(), principalFrom(r.Context()), domain.Participant{
		GroupID:       chi.URLParam(r, "groupID"),
		ParticipantID: chi.URLParam(r, "participantID"),
		UserID:        req.UserID,
		Email:         req.Email,
		Status:        req.Status,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

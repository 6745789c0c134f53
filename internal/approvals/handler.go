package approvals

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"hoitoportaali/internal/session"
)

var validate = validator.New()

// Handler serves the approval endpoints. The caller's session comes from
// the request context; the workflow decides what it may do.
type Handler struct {
	Workflow *Workflow
	Logger   zerolog.Logger
}

type submitRequest struct {
	PatientID string `json:"patientId" validate:"required"`
	Diagnosis string `json:"diagnosis" validate:"required"`
}

type rejectRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "patientId and diagnosis are required")
		return
	}
	res, err := h.Workflow.Submit(r.Context(), session.FromContext(r.Context()), req.PatientID, req.Diagnosis)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		PatientID: q.Get("patient_id"),
		Status:    Status(q.Get("status")),
		CreatedBy: q.Get("created_by"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = l
		}
	}
	reqs, err := h.Workflow.List(r.Context(), session.FromContext(r.Context()), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	if reqs == nil {
		reqs = []Request{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	res, err := h.Workflow.Review(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	res, err := h.Workflow.Approve(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Reject accepts an empty body; the note is optional.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	res, err := h.Workflow.Reject(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error().Err(err).Msg("approval request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

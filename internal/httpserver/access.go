package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"hoitoportaali/internal/access"
	"hoitoportaali/internal/audit"
	"hoitoportaali/internal/navigation"
	"hoitoportaali/internal/session"
)

type accessHandlers struct {
	resolver *access.Resolver
	registry *access.Registry
	menu     navigation.Menu
	recorder audit.Recorder
	logger   zerolog.Logger
}

func (h *accessHandlers) check(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	d := h.resolver.Decide(session.FromContext(r.Context()), pageID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pageId":  pageID,
		"allowed": d.Allowed,
	})
}

func (h *accessHandlers) navigation(w http.ResponseWriter, r *http.Request) {
	groups := navigation.Filter(h.menu, session.FromContext(r.Context()), h.resolver)
	if groups == nil {
		groups = []navigation.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *accessHandlers) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *accessHandlers) get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.registry.Entry(chi.URLParam(r, "pageID"))
	if !ok {
		writeError(w, http.StatusNotFound, "no entry for page")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type pageEntryRequest struct {
	Roles     []string `json:"roles" validate:"dive,required"`
	JobTitles []string `json:"jobTitles" validate:"dive,required"`
}

func (h *accessHandlers) put(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	var req pageEntryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "roles and jobTitles must be lists of non-empty strings")
		return
	}
	e, err := h.registry.Put(r.Context(), access.PageEntry{
		PageID:    pageID,
		Roles:     req.Roles,
		JobTitles: req.JobTitles,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("page", pageID).Msg("store page permission")
		writeError(w, http.StatusInternalServerError, "store failed")
		return
	}
	h.audit(r, audit.ActionPagePermissionSet, pageID)
	writeJSON(w, http.StatusOK, e)
}

func (h *accessHandlers) delete(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	if err := h.registry.Delete(r.Context(), pageID); err != nil {
		if errors.Is(err, access.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "no entry for page")
			return
		}
		h.logger.Error().Err(err).Str("page", pageID).Msg("delete page permission")
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.audit(r, audit.ActionPagePermissionDrop, pageID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *accessHandlers) audit(r *http.Request, action audit.Action, pageID string) {
	sess := session.FromContext(r.Context())
	e := &audit.Entry{Actor: sess.Username, Action: action, Outcome: audit.OutcomeSuccess, PageID: pageID}
	if err := h.recorder.Record(r.Context(), e); err != nil {
		h.logger.Error().Err(err).Msg("record audit entry")
	}
}

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/session"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token   string           `json:"token"`
	Session *session.Session `json:"session"`
}

type loginFunc func(ctx context.Context, clientID, username, password string) (auth.Reason, error)

type authHandlers struct {
	sessions    *session.Manager
	tokens      *session.Tokens
	logger      zerolog.Logger
	diagnostics bool
}

func (h *authHandlers) login(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r, h.sessions.LoginDiagnostic)
}

func (h *authHandlers) patientLogin(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r, h.sessions.LoginAsPatientDiagnostic)
}

// handleLogin keeps the client id of an already presented token so that a
// login replaces whatever session the client held.
func (h *authHandlers) handleLogin(w http.ResponseWriter, r *http.Request, fn loginFunc) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	clientID, ok := session.ClientFromContext(r.Context())
	if !ok {
		clientID = session.NewClientID()
	}
	reason, err := fn(r.Context(), clientID, req.Username, req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if reason != auth.ReasonOK {
		body := map[string]string{"error": "invalid credentials"}
		if h.diagnostics && r.URL.Query().Get("diagnostic") == "1" {
			body["reason"] = string(reason)
		}
		writeJSON(w, http.StatusUnauthorized, body)
		return
	}
	sess, err := h.sessions.Restore(r.Context(), clientID)
	if err != nil || sess == nil {
		h.logger.Error().Err(err).Msg("restore after login")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	expires := time.Now().Add(session.DefaultTTL)
	if sess.ExpiresAt != nil {
		expires = *sess.ExpiresAt
	}
	token, err := h.tokens.Issue(clientID, expires)
	if err != nil {
		h.logger.Error().Err(err).Msg("issue token")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Session: sess})
}

func (h *authHandlers) logout(w http.ResponseWriter, r *http.Request) {
	clientID, ok := session.ClientFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.sessions.Logout(r.Context(), clientID); err != nil {
		h.logger.Error().Err(err).Msg("logout")
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *authHandlers) current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.FromContext(r.Context()))
}

type shiftRequest struct {
	OnDuty *bool `json:"onDuty" validate:"required"`
}

func (h *authHandlers) shift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "onDuty is required")
		return
	}
	clientID, _ := session.ClientFromContext(r.Context())
	sess, err := h.sessions.UpdateShiftStatus(r.Context(), clientID, *req.OnDuty)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			writeError(w, http.StatusConflict, "shift status needs a staff session")
			return
		}
		h.logger.Error().Err(err).Msg("update shift status")
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

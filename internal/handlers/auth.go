package handlers

import (
	"net/http"
	"strings"

	"estate/internal/apperr"
	"estate/internal/middleware"
	"estate/internal/services"
	"estate/internal/websocket"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Token implements the OAuth2 password grant: form fields username (the
// email) and password.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, errInvalidPayload)
		return
	}
	if grant := r.PostForm.Get("grant_type"); grant != "" && grant != "password" {
		respondError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		h.writeError(w, r, apperr.Validation("username and password are required"))
		return
	}
	session, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		if status := middleware.StatusFor(err); status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.Get(r.Context(), actor, actor.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.ProfilePatch
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// WSNotifications upgrades to a websocket that receives the caller's
// notifications. Browsers cannot set headers on the handshake, so the token
// may also come from the query string.
func (h *Handler) WSNotifications(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "notifications unavailable")
		return
	}
	token, ok := middleware.BearerToken(r, true)
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	user, err := h.users.Authenticate(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, user.ID, h.logger)
}

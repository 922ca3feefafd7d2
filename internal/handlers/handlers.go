package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/db"
	"estate/internal/logging"
	"estate/internal/middleware"
	"estate/internal/policy"
	"estate/internal/store"
)

var (
	errInvalidPayload = apperr.Validation("invalid payload")
	errInvalidID      = apperr.Validation("invalid id")
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError maps a service error onto its status code. Anything without a
// kind is a 500 and gets logged with the request id.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if db.IsUniqueViolation(err) {
		respondError(w, http.StatusConflict, "resource already exists")
		return
	}
	status := middleware.StatusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context(), h.logger).Error("request failed", zap.Error(err))
		respondError(w, status, "internal server error")
		return
	}
	respondError(w, status, apperr.Message(err, http.StatusText(status)))
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return errInvalidPayload
	}
	return nil
}

func actorFrom(r *http.Request) (policy.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return policy.Actor{}, apperr.Unauthorized("not authenticated")
	}
	return actor, nil
}

// pathID reads a uuid path parameter. Malformed ids are rejected before they
// reach the uuid columns.
func pathID(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errInvalidID
	}
	return id.String(), nil
}

// idField names an id carried in a request body.
type idField struct {
	name  string
	value *string
}

// checkIDs rejects malformed body ids and rewrites the rest in canonical
// form. Absent or empty ids are left to the services' required checks.
func checkIDs(fields ...idField) error {
	for _, f := range fields {
		if f.value == nil || *f.value == "" {
			continue
		}
		id, err := uuid.Parse(*f.value)
		if err != nil {
			return apperr.Validationf("invalid %s", f.name)
		}
		*f.value = id.String()
	}
	return nil
}

func parsePage(r *http.Request) (store.Page, error) {
	page := store.Page{Limit: store.DefaultLimit}
	query := r.URL.Query()
	if raw := query.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return store.Page{}, apperr.Validation("skip must be a non-negative integer")
		}
		page.Skip = skip
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			return store.Page{}, apperr.Validationf("limit must be between 1 and %d", store.MaxLimit)
		}
		page.Limit = limit
	}
	return page, nil
}

func queryString(r *http.Request, key string) *string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	return &raw
}

func queryID(r *http.Request, key string) (*string, error) {
	raw := queryString(r, key)
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apperr.Validationf("invalid %s", key)
	}
	value := id.String()
	return &value, nil
}

func queryEnum[T ~string](r *http.Request, key string, valid func(T) bool) (*T, error) {
	raw := queryString(r, key)
	if raw == nil {
		return nil, nil
	}
	value := T(*raw)
	if !valid(value) {
		return nil, apperr.Validationf("invalid %s", key)
	}
	return &value, nil
}

func queryInt(r *http.Request, key string) (*int, error) {
	raw := queryString(r, key)
	if raw == nil {
		return nil, nil
	}
	value, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, apperr.Validationf("invalid %s", key)
	}
	return &value, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := queryString(r, key)
	if raw == nil {
		return nil, nil
	}
	value, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, apperr.Validationf("invalid %s", key)
	}
	return &value, nil
}

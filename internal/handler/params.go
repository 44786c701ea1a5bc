package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-be/internal/apperror"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid_id", name+" must be a positive integer",
			map[string]string{name: "invalid"})
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("invalid_query", name+" must be an integer",
			map[string]string{name: "invalid"})
	}
	return v, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperror.Validation("invalid_query", name+" must be an RFC3339 timestamp",
			map[string]string{name: "invalid"})
	}
	return &ts, nil
}

func actor(r *http.Request) (utils.Actor, error) {
	a, ok := utils.ActorFromContext(r.Context())
	if !ok {
		return utils.Actor{}, apperror.Unauthorized("authentication required")
	}
	return a, nil
}

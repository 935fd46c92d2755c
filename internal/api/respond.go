package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"txtforge/internal/database"
	"txtforge/internal/voting"
	"txtforge/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxBodyBytes = 1 << 20
	maxPageLimit = 100
)

// errBadRequest marks client errors whose message is safe to show.
type errBadRequest struct {
	msg string
}

func (e *errBadRequest) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &errBadRequest{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Failed to encode response", logger.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// fail maps err onto a status code. Unexpected errors are logged and answered
// with fallback so internals never reach the client.
func fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var bad *errBadRequest
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.msg)
	case errors.Is(err, voting.ErrInvalidVote):
		writeError(w, http.StatusBadRequest, "Тип голоса должен быть like или dislike")
	case errors.Is(err, database.ErrNotFound), errors.Is(err, voting.ErrJokeNotFound):
		writeError(w, http.StatusNotFound, "Не найдено")
	case errors.Is(err, database.ErrDuplicate):
		writeError(w, http.StatusConflict, "Запись с такими данными уже существует")
	default:
		logger.Error("Request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Err(err),
		)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// readJSON decodes a single JSON object from the request body into dst.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("Пустое тело запроса")
		}
		return badRequest("Некорректный JSON: %v", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("Некорректный идентификатор")
	}
	return id, nil
}

// queryInt reads an integer query parameter; absent or malformed values yield def.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryID(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, badRequest("Некорректный параметр %s", name)
	}
	return id, nil
}

func clampLimit(limit int) int {
	return min(max(limit, 1), maxPageLimit)
}

// pageParams returns a 1-based page and a limit clamped to [1, maxPageLimit].
func pageParams(r *http.Request, defaultLimit int) (page, limit int) {
	page = max(queryInt(r, "page", 1), 1)
	limit = clampLimit(queryInt(r, "limit", defaultLimit))
	return page, limit
}

package api

import (
	"errors"
	"net/http"

	"txtforge/internal/database"
	"txtforge/internal/models"
)

func (s *Server) currentCodeInjection(r *http.Request) (*models.CodeInjection, error) {
	ci, err := s.deps.CodeInjection.Get(r.Context())
	if errors.Is(err, database.ErrNotFound) {
		return &models.CodeInjection{}, nil
	}
	return ci, err
}

func (s *Server) handlePublicCodeInjection(w http.ResponseWriter, r *http.Request) {
	ci, err := s.currentCodeInjection(r)
	if err != nil {
		fail(w, r, err, "Ошибка при получении кода")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"headerCode": ci.HeaderCode})
}

func (s *Server) handleGetCodeInjection(w http.ResponseWriter, r *http.Request) {
	ci, err := s.currentCodeInjection(r)
	if err != nil {
		fail(w, r, err, "Ошибка при получении кода")
		return
	}
	writeJSON(w, http.StatusOK, ci)
}

type codeInjectionRequest struct {
	HeaderCode string `json:"headerCode"`
}

func (s *Server) handleSaveCodeInjection(w http.ResponseWriter, r *http.Request) {
	var req codeInjectionRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}

	ci, err := s.deps.CodeInjection.Save(r.Context(), req.HeaderCode)
	if err != nil {
		fail(w, r, err, "Ошибка при сохранении кода")
		return
	}
	writeJSON(w, http.StatusOK, ci)
}

package api

import (
	"errors"
	"net/http"

	"txtforge/internal/auth"
	"txtforge/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Укажите имя пользователя и пароль")
		return
	}

	token, err := s.deps.Auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.Warn("Failed admin login", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Неверные учетные данные")
		return
	}
	if err != nil {
		fail(w, r, err, "Ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

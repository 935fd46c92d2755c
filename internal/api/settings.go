package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/pkg/logger"
)

type aiSettingsResponse struct {
	OpenRouterAPIKey *string          `json:"openrouterApiKey"`
	Models           []models.AIModel `json:"models"`
	UpdatedAt        *time.Time       `json:"updatedAt,omitempty"`
}

func (s *Server) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context())
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusOK, aiSettingsResponse{Models: []models.AIModel{}})
		return
	}
	if err != nil {
		fail(w, r, err, "Ошибка при получении настроек")
		return
	}

	resp := aiSettingsResponse{
		Models:    settings.Models,
		UpdatedAt: &settings.UpdatedAt,
	}
	if resp.Models == nil {
		resp.Models = []models.AIModel{}
	}
	if settings.OpenRouterAPIKey != "" {
		masked := models.MaskAPIKey(settings.OpenRouterAPIKey)
		resp.OpenRouterAPIKey = &masked
	}
	writeJSON(w, http.StatusOK, resp)
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// handleSetAPIKey stores the OpenRouter key. With ?validate=true the key is
// checked against OpenRouter first and a rejected key is not saved.
func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "API ключ обязателен")
		return
	}

	if r.URL.Query().Get("validate") == "true" {
		ok, err := s.deps.Models.ValidateKey(r.Context(), key)
		if err != nil {
			logger.Warn("API key validation failed", logger.Err(err))
			writeError(w, http.StatusBadGateway, "Не удалось проверить API ключ")
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "OpenRouter отклонил API ключ")
			return
		}
	}

	if _, err := s.deps.Settings.SetAPIKey(r.Context(), key); err != nil {
		fail(w, r, err, "Ошибка при обновлении API ключа")
		return
	}

	logger.Info("OpenRouter API key updated", logger.String("admin", adminFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "API ключ успешно обновлен",
		"maskedKey": models.MaskAPIKey(key),
	})
}

type addModelRequest struct {
	Name    string `json:"name"`
	ModelID string `json:"modelId"`
}

func (s *Server) handleAddModel(w http.ResponseWriter, r *http.Request) {
	var req addModelRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	req.Name, req.ModelID = strings.TrimSpace(req.Name), strings.TrimSpace(req.ModelID)
	if req.Name == "" || req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "Название и идентификатор модели обязательны")
		return
	}

	model, err := s.deps.Settings.AddModel(r.Context(), req.Name, req.ModelID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Настройки не найдены")
		return
	}
	if errors.Is(err, database.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Модель уже добавлена")
		return
	}
	if err != nil {
		fail(w, r, err, "Ошибка при добавлении модели")
		return
	}
	writeJSON(w, http.StatusCreated, model)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	if err := s.deps.Settings.DeleteModel(r.Context(), id); err != nil {
		fail(w, r, err, "Ошибка при удалении модели")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadSettings treats missing settings as an empty record with no key.
func (s *Server) loadSettings(r *http.Request) (*models.AISettings, error) {
	settings, err := s.deps.Settings.Get(r.Context())
	if errors.Is(err, database.ErrNotFound) {
		return &models.AISettings{}, nil
	}
	return settings, err
}

func (s *Server) handleAvailableModels(w http.ResponseWriter, r *http.Request) {
	settings, err := s.loadSettings(r)
	if err != nil {
		fail(w, r, err, "Ошибка при получении моделей")
		return
	}
	if settings.OpenRouterAPIKey == "" {
		writeError(w, http.StatusBadRequest, "API ключ не настроен")
		return
	}

	available, err := s.deps.Models.ListModels(r.Context(), settings.OpenRouterAPIKey)
	if err != nil {
		logger.Warn("Failed to list OpenRouter models", logger.Err(err))
		writeError(w, http.StatusBadGateway, "Не удалось получить список моделей")
		return
	}
	writeJSON(w, http.StatusOK, available)
}

type testModelRequest struct {
	ModelID string `json:"modelId"`
	Prompt  string `json:"prompt"`
}

type testModelResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (s *Server) handleTestModel(w http.ResponseWriter, r *http.Request) {
	var req testModelRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, testModelResponse{Message: "Промпт обязателен"})
		return
	}

	settings, err := s.loadSettings(r)
	if err != nil {
		fail(w, r, err, "Ошибка при тестировании модели")
		return
	}
	if settings.OpenRouterAPIKey == "" {
		writeJSON(w, http.StatusBadRequest, testModelResponse{Message: "API ключ не настроен"})
		return
	}
	model, ok := settings.FindModel(req.ModelID)
	if !ok {
		writeJSON(w, http.StatusNotFound, testModelResponse{Message: "Модель не найдена"})
		return
	}

	start := time.Now()
	text, err := s.deps.Models.Complete(r.Context(), settings.OpenRouterAPIKey, model.ModelID, req.Prompt)
	if err != nil {
		logger.Warn("Model test failed",
			logger.String("model", model.ModelID),
			logger.Err(err),
		)
		writeJSON(w, http.StatusBadGateway, testModelResponse{Message: err.Error()})
		return
	}

	logger.Info("Model test succeeded",
		logger.String("model", model.ModelID),
		logger.Duration("took", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, testModelResponse{Success: true, Response: text})
}

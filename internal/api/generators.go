package api

import (
	"errors"
	"net/http"
	"strings"

	"txtforge/internal/database"
	"txtforge/internal/generator"
	"txtforge/internal/models"
	"txtforge/pkg/logger"
)

type generatorRequest struct {
	SectionID       *int64  `json:"sectionId"`
	ModelID         *string `json:"modelId"`
	Prompt          *string `json:"prompt"`
	IntervalMinutes *int    `json:"intervalMinutes"`
}

// validateGenerator checks the fields present in the request. With create set every
// field is required.
func (s *Server) validateGenerator(r *http.Request, req *generatorRequest, create bool) error {
	if create && (req.SectionID == nil || req.ModelID == nil || req.Prompt == nil || req.IntervalMinutes == nil) {
		return badRequest("Раздел, модель, промпт и интервал обязательны")
	}
	if req.ModelID != nil && strings.TrimSpace(*req.ModelID) == "" {
		return badRequest("Модель не может быть пустой")
	}
	if req.Prompt != nil && strings.TrimSpace(*req.Prompt) == "" {
		return badRequest("Промпт не может быть пустым")
	}
	if req.IntervalMinutes != nil && *req.IntervalMinutes < 1 {
		return badRequest("Интервал должен быть не меньше 1 минуты")
	}
	if req.SectionID != nil {
		_, err := s.deps.Sections.GetByID(r.Context(), *req.SectionID)
		if errors.Is(err, database.ErrNotFound) {
			return badRequest("Раздел не найден")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleListGenerators(w http.ResponseWriter, r *http.Request) {
	generators, err := s.deps.Generators.List(r.Context())
	if err != nil {
		fail(w, r, err, "Ошибка при получении генераторов")
		return
	}
	writeJSON(w, http.StatusOK, generators)
}

func (s *Server) handleCreateGenerator(w http.ResponseWriter, r *http.Request) {
	var req generatorRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if err := s.validateGenerator(r, &req, true); err != nil {
		fail(w, r, err, "Ошибка при создании генератора")
		return
	}

	g := models.ContentGenerator{
		SectionID:       *req.SectionID,
		ModelID:         strings.TrimSpace(*req.ModelID),
		Prompt:          *req.Prompt,
		IntervalMinutes: *req.IntervalMinutes,
	}
	if err := s.deps.Generators.Create(r.Context(), &g); err != nil {
		fail(w, r, err, "Ошибка при создании генератора")
		return
	}

	logger.Info("Content generator created",
		logger.Int64("generator_id", g.ID),
		logger.Int64("section_id", g.SectionID),
		logger.String("model", g.ModelID),
	)
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateGenerator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	var req generatorRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if err := s.validateGenerator(r, &req, false); err != nil {
		fail(w, r, err, "Ошибка при обновлении генератора")
		return
	}

	g, err := s.deps.Generators.Update(r.Context(), id, database.GeneratorUpdate{
		SectionID:       req.SectionID,
		ModelID:         req.ModelID,
		Prompt:          req.Prompt,
		IntervalMinutes: req.IntervalMinutes,
	})
	if err != nil {
		fail(w, r, err, "Ошибка при обновлении генератора")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type toggleRequest struct {
	IsActive *bool `json:"isActive"`
}

func (s *Server) handleToggleGenerator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	var req toggleRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Поле isActive обязательно")
		return
	}

	g, err := s.deps.Generators.Update(r.Context(), id, database.GeneratorUpdate{IsActive: req.IsActive})
	if err != nil {
		fail(w, r, err, "Ошибка при обновлении статуса генератора")
		return
	}

	logger.Info("Content generator toggled",
		logger.Int64("generator_id", id),
		logger.Bool("active", g.IsActive),
	)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGenerator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	if err := s.deps.Generators.Delete(r.Context(), id); err != nil {
		fail(w, r, err, "Ошибка при удалении генератора")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchIntervalRequest struct {
	IDs             []int64 `json:"ids"`
	IntervalMinutes int     `json:"intervalMinutes"`
}

func (s *Server) handleBatchInterval(w http.ResponseWriter, r *http.Request) {
	var req batchIntervalRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if req.IDs == nil || req.IntervalMinutes < 1 {
		writeError(w, http.StatusBadRequest, "Неверные параметры запроса")
		return
	}

	n, err := s.deps.Generators.BatchSetInterval(r.Context(), req.IDs, req.IntervalMinutes)
	if err != nil {
		fail(w, r, err, "Ошибка при обновлении интервалов")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Интервалы успешно обновлены",
		"updated": n,
	})
}

type batchStatusRequest struct {
	IDs      []int64 `json:"ids"`
	IsActive *bool   `json:"isActive"`
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	var req batchStatusRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if req.IDs == nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Неверные параметры запроса")
		return
	}

	n, err := s.deps.Generators.BatchSetActive(r.Context(), req.IDs, *req.IsActive)
	if err != nil {
		fail(w, r, err, "Ошибка при обновлении статусов")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Статусы успешно обновлены",
		"updated": n,
	})
}

// handleRunGenerator runs one generator now, active or not. Failures leave
// its lastRun untouched, exactly as in the poll loop.
func (s *Server) handleRunGenerator(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, http.StatusServiceUnavailable, "Генератор отключен")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	job, err := s.deps.Generators.GetByID(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Ошибка при запуске генератора")
		return
	}

	joke, err := s.deps.Runner.RunJob(r.Context(), job)
	switch {
	case err == nil:
	case errors.Is(err, generator.ErrSectionNotFound),
		errors.Is(err, generator.ErrAPIKeyMissing),
		errors.Is(err, generator.ErrModelNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		logger.Warn("Manual generator run failed",
			logger.Int64("generator_id", id),
			logger.Err(err),
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"joke":    joke,
		"lastRun": job.LastRun,
	})
}

package api

import (
	"net/http"
	"strings"

	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
)

type sectionRequest struct {
	Title *string            `json:"title"`
	Slug  *string            `json:"slug"`
	Icon  *string            `json:"icon"`
	Order *int               `json:"order"`
	SEO   *models.SectionSEO `json:"seo"`
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.deps.Sections.List(r.Context())
	if err != nil {
		fail(w, r, err, "Ошибка при получении разделов")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	section, err := s.deps.Sections.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		fail(w, r, err, "Ошибка при получении раздела")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

// normalizeSlug turns a user supplied slug, or the title when the slug is
// blank, into a URL-safe identifier.
func normalizeSlug(raw, title string) (string, error) {
	src := strings.TrimSpace(raw)
	if src == "" {
		src = title
	}
	out := slug.Make(src)
	if out == "" {
		return "", badRequest("Не удалось построить slug из %q", src)
	}
	return out, nil
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "Название раздела обязательно")
		return
	}

	section := models.Section{
		Title: strings.TrimSpace(*req.Title),
		Icon:  models.DefaultSectionIcon,
	}

	var rawSlug string
	if req.Slug != nil {
		rawSlug = *req.Slug
	}
	sl, err := normalizeSlug(rawSlug, section.Title)
	if err != nil {
		fail(w, r, err, "")
		return
	}
	section.Slug = sl

	if req.Icon != nil && *req.Icon != "" {
		section.Icon = *req.Icon
	}
	if req.Order != nil {
		section.Order = *req.Order
	}
	if req.SEO != nil {
		section.SEO = *req.SEO
	}
	section.SEO.FillDefaults(section.Title)

	if err := s.deps.Sections.Create(r.Context(), &section); err != nil {
		fail(w, r, err, "Ошибка при создании раздела")
		return
	}

	logger.Info("Section created",
		logger.Int64("section_id", section.ID),
		logger.String("slug", section.Slug),
		logger.String("admin", adminFromContext(r.Context())),
	)
	writeJSON(w, http.StatusCreated, section)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	var req sectionRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}

	update := database.SectionUpdate{
		Icon:  req.Icon,
		Order: req.Order,
		SEO:   req.SEO,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "Название раздела не может быть пустым")
			return
		}
		update.Title = &title
		if update.SEO != nil {
			update.SEO.FillDefaults(title)
		}
	}
	if req.Slug != nil {
		sl, err := normalizeSlug(*req.Slug, "")
		if err != nil {
			fail(w, r, err, "")
			return
		}
		update.Slug = &sl
	}

	section, err := s.deps.Sections.Update(r.Context(), id, update)
	if err != nil {
		fail(w, r, err, "Ошибка при обновлении раздела")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	if err := s.deps.Sections.Delete(r.Context(), id); err != nil {
		fail(w, r, err, "Ошибка при удалении раздела")
		return
	}

	logger.Info("Section deleted",
		logger.Int64("section_id", id),
		logger.String("admin", adminFromContext(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}

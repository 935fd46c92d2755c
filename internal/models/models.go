package models

import (
	"fmt"
	"strings"
	"time"
)

const DefaultSectionIcon = "FaLaugh"

type SectionSEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	Tags        []string `json:"tags"`
	H1          string   `json:"h1"`
}

type Section struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	Icon       string     `json:"icon"`
	Order      int        `json:"order"`
	JokesCount int        `json:"jokesCount"`
	SEO        SectionSEO `json:"seo"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DefaultSectionSEO derives the SEO block of a new section from its title.
func DefaultSectionSEO(title string) SectionSEO {
	lower := strings.ToLower(title)
	return SectionSEO{
		Title:       fmt.Sprintf("%s - Анекдоты и шутки | TxtForge", title),
		Description: fmt.Sprintf("Коллекция самых смешных анекдотов и шуток в категории \"%s\". Ежедневное обновление, только лучший юмор.", title),
		Keywords:    fmt.Sprintf("анекдоты %s, шутки, юмор, смешные истории", lower),
		Tags:        []string{lower, "анекдоты", "юмор"},
		H1:          fmt.Sprintf("Анекдоты про %s", lower),
	}
}

// FillDefaults replaces empty SEO fields with the values derived from title.
func (s *SectionSEO) FillDefaults(title string) {
	def := DefaultSectionSEO(title)
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.Description == "" {
		s.Description = def.Description
	}
	if s.Keywords == "" {
		s.Keywords = def.Keywords
	}
	if len(s.Tags) == 0 {
		s.Tags = def.Tags
	}
	if s.H1 == "" {
		s.H1 = def.H1
	}
}

type JokeSEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	Tags        []string `json:"tags"`
}

type Joke struct {
	ID          int64     `json:"id"`
	SectionID   int64     `json:"sectionId"`
	Text        string    `json:"text"`
	IsPublished bool      `json:"isPublished"`
	Views       int       `json:"views"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	IsGenerated bool      `json:"isGenerated"`
	SEO         JokeSEO   `json:"seo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
)

func (t InteractionType) IsVote() bool {
	return t == InteractionLike || t == InteractionDislike
}

type JokeInteraction struct {
	ID        int64           `json:"id"`
	JokeID    int64           `json:"jokeId"`
	ClientID  string          `json:"clientId"`
	Type      InteractionType `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}

type AIModel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ModelID   string    `json:"modelId"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AISettings struct {
	ID               int64     `json:"id"`
	OpenRouterAPIKey string    `json:"openrouterApiKey"`
	Models           []AIModel `json:"models"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FindModel looks a model up by its provider identifier, not by record id.
func (s *AISettings) FindModel(modelID string) (AIModel, bool) {
	for _, m := range s.Models {
		if m.ModelID == modelID {
			return m, true
		}
	}
	return AIModel{}, false
}

// MaskAPIKey keeps only the last four characters of a key.
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "..." + key
	}
	return "..." + key[len(key)-4:]
}

type ContentGenerator struct {
	ID              int64      `json:"id"`
	SectionID       int64      `json:"sectionId"`
	ModelID         string     `json:"modelId"`
	Prompt          string     `json:"prompt"`
	IntervalMinutes int        `json:"intervalMinutes"`
	IsActive        bool       `json:"isActive"`
	LastRun         *time.Time `json:"lastRun"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (g *ContentGenerator) Interval() time.Duration {
	return time.Duration(g.IntervalMinutes) * time.Minute
}

type CodeInjection struct {
	ID         int64     `json:"id"`
	HeaderCode string    `json:"headerCode"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Pagination struct {
	Total       int  `json:"total"`
	Pages       int  `json:"pages"`
	CurrentPage int  `json:"currentPage"`
	HasMore     bool `json:"hasMore"`
}

// NewPagination computes the page metadata for a 1-based page of size limit.
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
		HasMore:     page*limit < total,
	}
}

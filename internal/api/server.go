// Package api serves the public and admin REST endpoints under /api.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"txtforge/internal/config"
	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/internal/openrouter"
	"txtforge/internal/queue"
	"txtforge/internal/search"
	"txtforge/internal/voting"
	"txtforge/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

type SectionStore interface {
	List(ctx context.Context) ([]models.Section, error)
	GetByID(ctx context.Context, id int64) (*models.Section, error)
	GetBySlug(ctx context.Context, slug string) (*models.Section, error)
	Create(ctx context.Context, s *models.Section) error
	Update(ctx context.Context, id int64, u database.SectionUpdate) (*models.Section, error)
	Delete(ctx context.Context, id int64) error
}

type JokeStore interface {
	List(ctx context.Context, f database.JokeFilter) ([]models.Joke, int, error)
	GetByID(ctx context.Context, id int64) (*models.Joke, error)
	Create(ctx context.Context, j *models.Joke) error
	Update(ctx context.Context, id int64, u database.JokeUpdate) (*models.Joke, error)
	Delete(ctx context.Context, id int64) (*models.Joke, error)
	Random(ctx context.Context, f database.RandomFilter) ([]models.Joke, error)
	Top(ctx context.Context, order database.TopOrder, limit int) ([]models.Joke, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Joke, error)
}

type VoteEngine interface {
	RecordView(ctx context.Context, jokeID int64, clientID string) error
	Vote(ctx context.Context, jokeID int64, clientID string, t models.InteractionType) (*voting.Result, error)
	UserVotes(ctx context.Context, clientID string, jokeIDs []int64) (map[int64]models.InteractionType, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.AISettings, error)
	SetAPIKey(ctx context.Context, key string) (*models.AISettings, error)
	AddModel(ctx context.Context, name, modelID string) (*models.AIModel, error)
	DeleteModel(ctx context.Context, id int64) error
}

type ModelClient interface {
	Complete(ctx context.Context, apiKey, model, prompt string) (string, error)
	ListModels(ctx context.Context, apiKey string) ([]openrouter.Model, error)
	ValidateKey(ctx context.Context, apiKey string) (bool, error)
}

type GeneratorStore interface {
	List(ctx context.Context) ([]models.ContentGenerator, error)
	GetByID(ctx context.Context, id int64) (*models.ContentGenerator, error)
	Create(ctx context.Context, g *models.ContentGenerator) error
	Update(ctx context.Context, id int64, u database.GeneratorUpdate) (*models.ContentGenerator, error)
	Delete(ctx context.Context, id int64) error
	BatchSetInterval(ctx context.Context, ids []int64, minutes int) (int64, error)
	BatchSetActive(ctx context.Context, ids []int64, active bool) (int64, error)
}

// JobRunner executes a single generator immediately.
type JobRunner interface {
	RunJob(ctx context.Context, job *models.ContentGenerator) (*models.Joke, error)
}

type CodeInjectionStore interface {
	Get(ctx context.Context) (*models.CodeInjection, error)
	Save(ctx context.Context, headerCode string) (*models.CodeInjection, error)
}

type Searcher interface {
	Search(text string, sectionID int64, limit int) ([]search.Hit, error)
}

type Publisher interface {
	PublishJokeEvent(ctx context.Context, event *queue.JokeEvent) error
}

type Authenticator interface {
	Login(username, password string) (string, error)
	Verify(token string) (string, error)
}

// Deps are the collaborators behind the handlers. Search, Events and Runner
// may be nil; the matching endpoints then answer 503 or skip the side effect.
type Deps struct {
	Sections      SectionStore
	Jokes         JokeStore
	Votes         VoteEngine
	Settings      SettingsStore
	Models        ModelClient
	Generators    GeneratorStore
	Runner        JobRunner
	CodeInjection CodeInjectionStore
	Search        Searcher
	Events        Publisher
	Auth          Authenticator
}

type Server struct {
	cfg    config.HTTPConfig
	deps   Deps
	router chi.Router
	http   *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware.Handler)
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
	}

	voteLimit := limitByIP(s.cfg.VoteRateLimit)
	loginLimit := limitByIP(s.cfg.LoginRateLimit)

	r.Route("/api", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", s.handleLogin)

		r.Route("/sections", func(r chi.Router) {
			r.Get("/", s.handleListSections)
			r.Get("/{slug}", s.handleGetSection)

			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Post("/", s.handleCreateSection)
				r.Put("/{id}", s.handleUpdateSection)
				r.Delete("/{id}", s.handleDeleteSection)
			})
		})

		r.Route("/jokes", func(r chi.Router) {
			r.Get("/", s.handleListJokes)
			r.Get("/random", s.handleRandomJokes)
			r.Get("/latest", s.handleLatestJokes)
			r.Get("/top/{order}", s.handleTopJokes)
			r.Get("/search", s.handleSearchJokes)
			r.Get("/{id}", s.handleGetJoke)
			r.With(voteLimit).Post("/{id}/view", s.handleViewJoke)
			r.With(voteLimit).Post("/{id}/like", s.handleVoteJoke)

			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Post("/", s.handleCreateJoke)
				r.Put("/{id}", s.handleUpdateJoke)
				r.Delete("/{id}", s.handleDeleteJoke)
			})
		})

		r.Route("/ai-settings", func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/", s.handleGetAISettings)
			r.Put("/api-key", s.handleSetAPIKey)
			r.Get("/models/available", s.handleAvailableModels)
			r.Post("/models/test", s.handleTestModel)
			r.Post("/models", s.handleAddModel)
			r.Delete("/models/{id}", s.handleDeleteModel)
		})

		r.Route("/content-generator", func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/", s.handleListGenerators)
			r.Post("/", s.handleCreateGenerator)
			r.Put("/batch/interval", s.handleBatchInterval)
			r.Put("/batch/status", s.handleBatchStatus)
			r.Put("/{id}", s.handleUpdateGenerator)
			r.Put("/{id}/toggle", s.handleToggleGenerator)
			r.Post("/{id}/run", s.handleRunGenerator)
			r.Delete("/{id}", s.handleDeleteGenerator)
		})

		r.Route("/code-injection", func(r chi.Router) {
			r.Get("/public", s.handlePublicCodeInjection)

			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Get("/", s.handleGetCodeInjection)
				r.Post("/", s.handleSaveCodeInjection)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Маршрут не найден")
	})

	return r
}

func limitByIP(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(perMinute, time.Minute)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server listening", logger.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

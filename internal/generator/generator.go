// Package generator runs the periodic AI content generation loop.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"txtforge/internal/config"
	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/internal/queue"
	"txtforge/pkg/logger"
)

var (
	ErrSectionNotFound = errors.New("generator section not found")
	ErrAPIKeyMissing   = errors.New("openrouter api key is not configured")
	ErrModelNotFound   = errors.New("generator model is not registered")
)

type JobStore interface {
	ListActive(ctx context.Context) ([]models.ContentGenerator, error)
	MarkRun(ctx context.Context, id int64, at time.Time) error
}

type SectionStore interface {
	GetByID(ctx context.Context, id int64) (*models.Section, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.AISettings, error)
}

type JokeStore interface {
	Create(ctx context.Context, j *models.Joke) error
}

type Completer interface {
	Complete(ctx context.Context, apiKey, model, prompt string) (string, error)
}

type Publisher interface {
	PublishJokeEvent(ctx context.Context, event *queue.JokeEvent) error
}

type Deps struct {
	Jobs      JobStore
	Sections  SectionStore
	Settings  SettingsStore
	Jokes     JokeStore
	Completer Completer
}

type Service struct {
	deps      Deps
	publisher Publisher
	interval  time.Duration
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(cfg config.GeneratorConfig, deps Deps, opts ...Option) *Service {
	s := &Service{
		deps:     deps,
		interval: cfg.PollInterval,
		now:      time.Now,
	}
	if s.interval <= 0 {
		s.interval = time.Minute
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Stats summarizes one tick.
type Stats struct {
	Checked   int
	Due       int
	Generated int
	Failed    int
}

// IsDue reports whether a job's interval has elapsed. A job that never ran is due.
func IsDue(job *models.ContentGenerator, now time.Time) bool {
	if job.LastRun == nil {
		return true
	}
	return now.Sub(*job.LastRun) >= job.Interval()
}

// Run ticks immediately and then every poll interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	logger.Info("Content generator started", logger.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Content generator stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	stats, err := s.Tick(ctx)
	if err != nil {
		logger.Error("Generator tick failed", logger.Err(err))
		return
	}

	if stats.Due > 0 {
		logger.Info("Generator tick finished",
			logger.Int("checked", stats.Checked),
			logger.Int("due", stats.Due),
			logger.Int("generated", stats.Generated),
			logger.Int("failed", stats.Failed),
		)
	}
}

// Tick runs every due job once, one after another. A job failure is logged
// and counted; it never stops the remaining jobs. Cancelling ctx stops the
// tick between jobs, a running job is allowed to finish.
func (s *Service) Tick(ctx context.Context) (Stats, error) {
	var stats Stats

	jobs, err := s.deps.Jobs.ListActive(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list active generators: %w", err)
	}

	for i := range jobs {
		if ctx.Err() != nil {
			break
		}

		job := &jobs[i]
		stats.Checked++

		if !job.IsActive || !IsDue(job, s.now()) {
			continue
		}
		stats.Due++

		log := logger.With(
			logger.Int64("generator_id", job.ID),
			logger.Int64("section_id", job.SectionID),
			logger.String("model", job.ModelID),
		)

		joke, err := s.RunJob(context.WithoutCancel(ctx), job)
		if err != nil {
			stats.Failed++
			log.Error("Generator run failed", logger.Err(err))
			continue
		}

		stats.Generated++
		log.Info("Joke generated",
			logger.Int64("joke_id", joke.ID),
			logger.Int("length", len(joke.Text)),
			logger.Time("last_run", *job.LastRun),
		)
	}

	return stats, nil
}

// RunJob performs one generation attempt. lastRun advances only when a joke
// was stored; every error leaves the job due.
func (s *Service) RunJob(ctx context.Context, job *models.ContentGenerator) (*models.Joke, error) {
	now := s.now()

	section, err := s.deps.Sections.GetByID(ctx, job.SectionID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSectionNotFound, job.SectionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load section: %w", err)
	}

	settings, err := s.deps.Settings.Get(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrAPIKeyMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ai settings: %w", err)
	}
	if settings.OpenRouterAPIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	model, ok := settings.FindModel(job.ModelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, job.ModelID)
	}

	text, err := s.deps.Completer.Complete(ctx, settings.OpenRouterAPIKey, model.ModelID, FillPrompt(job.Prompt, now))
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	generated, err := ParseGenerated(text)
	if err != nil {
		return nil, err
	}

	joke := &models.Joke{
		SectionID:   section.ID,
		Text:        generated.Content,
		IsPublished: true,
		IsGenerated: true,
		SEO:         generated.SEO,
	}
	if err := s.deps.Jokes.Create(ctx, joke); err != nil {
		return nil, fmt.Errorf("failed to save joke: %w", err)
	}

	if err := s.deps.Jobs.MarkRun(ctx, job.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	job.LastRun = &now

	s.publish(ctx, joke)
	return joke, nil
}

func (s *Service) publish(ctx context.Context, joke *models.Joke) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishJokeEvent(ctx, &queue.JokeEvent{
		Type:      queue.JokeCreated,
		JokeID:    joke.ID,
		SectionID: joke.SectionID,
		Generated: true,
		At:        joke.CreatedAt,
	})
	if err != nil {
		logger.Warn("Failed to publish joke event",
			logger.Int64("joke_id", joke.ID),
			logger.Err(err),
		)
	}
}

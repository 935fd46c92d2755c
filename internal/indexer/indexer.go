// Package indexer consumes joke events and keeps derived state in step with
// the store: the search index, section joke counters and channel announcements.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/internal/queue"
	"txtforge/pkg/logger"
)

const reindexBatchSize = 500

type JokeStore interface {
	GetByID(ctx context.Context, id int64) (*models.Joke, error)
	ListPublishedAfter(ctx context.Context, afterID int64, limit int) ([]models.Joke, error)
}

type SectionStore interface {
	List(ctx context.Context) ([]models.Section, error)
	RefreshJokesCount(ctx context.Context, id int64) (int, error)
}

type SearchIndex interface {
	IndexJoke(j *models.Joke) error
	IndexBatch(jokes []models.Joke) error
	Delete(id int64) error
}

// Announcer publishes freshly generated jokes somewhere public.
type Announcer interface {
	AnnounceJoke(ctx context.Context, j *models.Joke) error
}

type Indexer struct {
	jokes     JokeStore
	sections  SectionStore
	index     SearchIndex
	announcer Announcer
}

type Option func(*Indexer)

func WithAnnouncer(a Announcer) Option {
	return func(ix *Indexer) {
		ix.announcer = a
	}
}

func New(jokes JokeStore, sections SectionStore, index SearchIndex, opts ...Option) *Indexer {
	ix := &Indexer{
		jokes:    jokes,
		sections: sections,
		index:    index,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Run consumes events until ctx is cancelled.
func (ix *Indexer) Run(ctx context.Context, q queue.Queue) error {
	logger.Info("Indexer started")
	err := q.ConsumeJokeEvents(ctx, func(e *queue.JokeEvent) error {
		return ix.Handle(ctx, e)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (ix *Indexer) Handle(ctx context.Context, e *queue.JokeEvent) error {
	switch e.Type {
	case queue.JokeCreated, queue.JokeUpdated:
		return ix.upsert(ctx, e)
	case queue.JokeDeleted:
		if err := ix.index.Delete(e.JokeID); err != nil {
			return fmt.Errorf("failed to remove joke %d from index: %w", e.JokeID, err)
		}
		return ix.refreshCount(ctx, e.SectionID)
	default:
		logger.Warn("Unknown joke event", logger.String("type", string(e.Type)))
		return nil
	}
}

func (ix *Indexer) upsert(ctx context.Context, e *queue.JokeEvent) error {
	joke, err := ix.jokes.GetByID(ctx, e.JokeID)
	if errors.Is(err, database.ErrNotFound) {
		// Deleted before the event was handled.
		if err := ix.index.Delete(e.JokeID); err != nil {
			return err
		}
		return ix.refreshCount(ctx, e.SectionID)
	}
	if err != nil {
		return fmt.Errorf("failed to load joke %d: %w", e.JokeID, err)
	}

	if err := ix.index.IndexJoke(joke); err != nil {
		return fmt.Errorf("failed to index joke %d: %w", joke.ID, err)
	}

	if err := ix.refreshCount(ctx, joke.SectionID); err != nil {
		return err
	}

	if e.Type == queue.JokeCreated && e.Generated && joke.IsPublished && ix.announcer != nil {
		if err := ix.announcer.AnnounceJoke(ctx, joke); err != nil {
			logger.Warn("Failed to announce joke",
				logger.Int64("joke_id", joke.ID),
				logger.Err(err),
			)
		}
	}
	return nil
}

func (ix *Indexer) refreshCount(ctx context.Context, sectionID int64) error {
	if sectionID == 0 {
		return nil
	}
	_, err := ix.sections.RefreshJokesCount(ctx, sectionID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to refresh jokes count of section %d: %w", sectionID, err)
	}
	return nil
}

// Rebuild indexes every published joke and recomputes all section counters.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	var (
		after   int64
		indexed int
	)
	for {
		batch, err := ix.jokes.ListPublishedAfter(ctx, after, reindexBatchSize)
		if err != nil {
			return fmt.Errorf("failed to page jokes: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		if err := ix.index.IndexBatch(batch); err != nil {
			return err
		}
		indexed += len(batch)
		after = batch[len(batch)-1].ID
	}

	sections, err := ix.sections.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sections: %w", err)
	}
	for _, s := range sections {
		if err := ix.refreshCount(ctx, s.ID); err != nil {
			return err
		}
	}

	logger.Info("Search index rebuilt",
		logger.Int("jokes", indexed),
		logger.Int("sections", len(sections)),
	)
	return nil
}

// Package voting keeps joke view and vote counters consistent with the
// per-client interaction ledger.
package voting

import (
	"context"
	"errors"
	"fmt"

	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/pkg/logger"
)

var (
	ErrInvalidVote  = errors.New("vote type must be like or dislike")
	ErrJokeNotFound = errors.New("joke not found")
)

// Store is the transactional ledger plus counter storage.
// Insert must return database.ErrDuplicate for an existing (joke, client, type).
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockJoke(ctx context.Context, jokeID int64) (*models.Joke, error)
	Insert(ctx context.Context, jokeID int64, clientID string, t models.InteractionType) error
	FindVote(ctx context.Context, jokeID int64, clientID string) (models.InteractionType, error)
	ChangeType(ctx context.Context, jokeID int64, clientID string, from, to models.InteractionType) error
	Delete(ctx context.Context, jokeID int64, clientID string, t models.InteractionType) error
	IncrementViews(ctx context.Context, jokeID int64) error
	AdjustVotes(ctx context.Context, jokeID int64, likes, dislikes int) (*models.Joke, error)
	UserVotes(ctx context.Context, clientID string, jokeIDs []int64) (map[int64]models.InteractionType, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Result is the joke after a vote and the caller's vote on it ("" for none).
type Result struct {
	Joke     *models.Joke
	UserVote models.InteractionType
}

// RecordView counts a view at most once per (joke, client).
func (e *Engine) RecordView(ctx context.Context, jokeID int64, clientID string) error {
	return e.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := e.lock(ctx, jokeID); err != nil {
			return err
		}

		err := e.store.Insert(ctx, jokeID, clientID, models.InteractionView)
		if errors.Is(err, database.ErrDuplicate) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to record view: %w", err)
		}

		return e.store.IncrementViews(ctx, jokeID)
	})
}

// transition describes how one vote call changes the ledger and counters.
type transition struct {
	create   models.InteractionType
	remove   models.InteractionType
	change   bool
	result   models.InteractionType
	likes    int
	dislikes int
}

func delta(t models.InteractionType, n int) (likes, dislikes int) {
	if t == models.InteractionLike {
		return n, 0
	}
	return 0, n
}

// decide applies the toggle rules: a new vote is created, the same vote is
// retracted and the opposite vote is switched.
func decide(existing, requested models.InteractionType) transition {
	switch existing {
	case "":
		l, d := delta(requested, 1)
		return transition{create: requested, result: requested, likes: l, dislikes: d}
	case requested:
		l, d := delta(requested, -1)
		return transition{remove: requested, likes: l, dislikes: d}
	default:
		addL, addD := delta(requested, 1)
		subL, subD := delta(existing, -1)
		return transition{remove: existing, change: true, result: requested, likes: addL + subL, dislikes: addD + subD}
	}
}

// Vote toggles the client's like or dislike on a joke.
func (e *Engine) Vote(ctx context.Context, jokeID int64, clientID string, t models.InteractionType) (*Result, error) {
	if !t.IsVote() {
		return nil, ErrInvalidVote
	}

	var res Result
	err := e.store.WithinTx(ctx, func(ctx context.Context) error {
		current, err := e.lock(ctx, jokeID)
		if err != nil {
			return err
		}

		existing, err := e.store.FindVote(ctx, jokeID, clientID)
		if err != nil {
			return err
		}

		tr := decide(existing, t)
		switch {
		case tr.change:
			err = e.store.ChangeType(ctx, jokeID, clientID, tr.remove, tr.result)
		case tr.remove != "":
			err = e.store.Delete(ctx, jokeID, clientID, tr.remove)
		default:
			err = e.store.Insert(ctx, jokeID, clientID, tr.create)
		}
		if err != nil {
			return fmt.Errorf("failed to update vote ledger: %w", err)
		}

		if current.Likes+tr.likes < 0 || current.Dislikes+tr.dislikes < 0 {
			logger.Warn("vote counter clamped at zero",
				logger.Int64("joke_id", jokeID),
				logger.Int("likes", current.Likes),
				logger.Int("dislikes", current.Dislikes),
				logger.String("vote", string(t)),
			)
		}

		joke, err := e.store.AdjustVotes(ctx, jokeID, tr.likes, tr.dislikes)
		if err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}

		res = Result{Joke: joke, UserVote: tr.result}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("vote applied",
		logger.Int64("joke_id", jokeID),
		logger.String("requested", string(t)),
		logger.String("user_vote", string(res.UserVote)),
	)
	return &res, nil
}

// UserVotes returns the client's vote per joke id; jokes without a vote are absent.
func (e *Engine) UserVotes(ctx context.Context, clientID string, jokeIDs []int64) (map[int64]models.InteractionType, error) {
	if clientID == "" || len(jokeIDs) == 0 {
		return map[int64]models.InteractionType{}, nil
	}
	return e.store.UserVotes(ctx, clientID, jokeIDs)
}

func (e *Engine) lock(ctx context.Context, jokeID int64) (*models.Joke, error) {
	joke, err := e.store.LockJoke(ctx, jokeID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrJokeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load joke %d: %w", jokeID, err)
	}
	return joke, nil
}

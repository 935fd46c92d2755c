// Package votingtest provides an in-memory voting.Store for tests.
package votingtest

import (
	"context"
	"maps"
	"sort"
	"sync"

	"txtforge/internal/database"
	"txtforge/internal/models"
)

type key struct {
	jokeID   int64
	clientID string
	typ      models.InteractionType
}

// Store keeps jokes and interactions in maps. WithinTx serializes callers and
// restores the previous state when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	jokes  map[int64]models.Joke
	ledger map[key]struct{}

	// FailAdjust makes AdjustVotes return the error, for rollback tests.
	FailAdjust error
}

func New() *Store {
	return &Store{
		jokes:  make(map[int64]models.Joke),
		ledger: make(map[key]struct{}),
	}
}

func (s *Store) Put(j models.Joke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jokes[j.ID] = j
}

// Remove drops a joke together with its ledger rows.
func (s *Store) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jokes, id)
	for k := range s.ledger {
		if k.jokeID == id {
			delete(s.ledger, k)
		}
	}
}

func (s *Store) Get(id int64) (models.Joke, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jokes[id]
	return j, ok
}

// Count returns the number of ledger rows of type t for a joke.
func (s *Store) Count(jokeID int64, t models.InteractionType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.ledger {
		if k.jokeID == jokeID && k.typ == t {
			n++
		}
	}
	return n
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	jokes := maps.Clone(s.jokes)
	ledger := maps.Clone(s.ledger)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.jokes, s.ledger = jokes, ledger
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) LockJoke(_ context.Context, jokeID int64) (*models.Joke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jokes[jokeID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &j, nil
}

func (s *Store) Insert(_ context.Context, jokeID int64, clientID string, t models.InteractionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{jokeID, clientID, t}
	if _, ok := s.ledger[k]; ok {
		return database.ErrDuplicate
	}
	s.ledger[k] = struct{}{}
	return nil
}

func (s *Store) FindVote(_ context.Context, jokeID int64, clientID string) (models.InteractionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range []models.InteractionType{models.InteractionLike, models.InteractionDislike} {
		if _, ok := s.ledger[key{jokeID, clientID, t}]; ok {
			return t, nil
		}
	}
	return "", nil
}

func (s *Store) ChangeType(_ context.Context, jokeID int64, clientID string, from, to models.InteractionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := key{jokeID, clientID, from}
	if _, ok := s.ledger[old]; !ok {
		return database.ErrNotFound
	}
	delete(s.ledger, old)
	s.ledger[key{jokeID, clientID, to}] = struct{}{}
	return nil
}

func (s *Store) Delete(_ context.Context, jokeID int64, clientID string, t models.InteractionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{jokeID, clientID, t}
	if _, ok := s.ledger[k]; !ok {
		return database.ErrNotFound
	}
	delete(s.ledger, k)
	return nil
}

func (s *Store) IncrementViews(_ context.Context, jokeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jokes[jokeID]
	if !ok {
		return database.ErrNotFound
	}
	j.Views++
	s.jokes[jokeID] = j
	return nil
}

func (s *Store) AdjustVotes(_ context.Context, jokeID int64, likes, dislikes int) (*models.Joke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAdjust != nil {
		return nil, s.FailAdjust
	}
	j, ok := s.jokes[jokeID]
	if !ok {
		return nil, database.ErrNotFound
	}
	j.Likes = max(j.Likes+likes, 0)
	j.Dislikes = max(j.Dislikes+dislikes, 0)
	s.jokes[jokeID] = j
	return &j, nil
}

func (s *Store) UserVotes(_ context.Context, clientID string, jokeIDs []int64) (map[int64]models.InteractionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	votes := make(map[int64]models.InteractionType)
	for _, id := range jokeIDs {
		for _, t := range []models.InteractionType{models.InteractionLike, models.InteractionDislike} {
			if _, ok := s.ledger[key{id, clientID, t}]; ok {
				votes[id] = t
			}
		}
	}
	return votes, nil
}

// JokeIDs lists stored joke ids in ascending order.
func (s *Store) JokeIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.jokes))
	for id := range s.jokes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/internal/queue"
	"txtforge/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit   = 9
	defaultTopLimit    = 6
	defaultRandomLimit = 3
	defaultSearchLimit = 10
)

// jokeView is a joke as seen by one client: userVote is null when the client
// has not voted.
type jokeView struct {
	models.Joke
	UserVote *models.InteractionType `json:"userVote"`
}

type jokeListResponse struct {
	Jokes      []jokeView        `json:"jokes"`
	Pagination models.Pagination `json:"pagination"`
}

func voteRef(t models.InteractionType) *models.InteractionType {
	if t == "" {
		return nil
	}
	return &t
}

// withVotes decorates jokes with the requesting client's votes.
func (s *Server) withVotes(r *http.Request, jokes []models.Joke) ([]jokeView, error) {
	ids := make([]int64, len(jokes))
	for i, j := range jokes {
		ids[i] = j.ID
	}

	votes, err := s.deps.Votes.UserVotes(r.Context(), readClientID(r), ids)
	if err != nil {
		return nil, err
	}

	out := make([]jokeView, len(jokes))
	for i, j := range jokes {
		out[i] = jokeView{Joke: j, UserVote: voteRef(votes[j.ID])}
	}
	return out, nil
}

func (s *Server) writeJokes(w http.ResponseWriter, r *http.Request, jokes []models.Joke, fallback string) {
	views, err := s.withVotes(r, jokes)
	if err != nil {
		fail(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListJokes(w http.ResponseWriter, r *http.Request) {
	sectionID, err := queryID(r, "sectionId")
	if err != nil {
		fail(w, r, err, "")
		return
	}
	page, limit := pageParams(r, defaultListLimit)

	filter := database.JokeFilter{
		SectionID: sectionID,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}
	if v := r.URL.Query().Get("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Некорректный параметр published")
			return
		}
		filter.Published = &published
	}

	jokes, total, err := s.deps.Jokes.List(r.Context(), filter)
	if err != nil {
		fail(w, r, err, "Ошибка при получении анекдотов")
		return
	}

	views, err := s.withVotes(r, jokes)
	if err != nil {
		fail(w, r, err, "Ошибка при получении анекдотов")
		return
	}

	writeJSON(w, http.StatusOK, jokeListResponse{
		Jokes:      views,
		Pagination: models.NewPagination(total, page, limit),
	})
}

func (s *Server) handleGetJoke(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	joke, err := s.deps.Jokes.GetByID(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Ошибка при получении анекдота")
		return
	}

	views, err := s.withVotes(r, []models.Joke{*joke})
	if err != nil {
		fail(w, r, err, "Ошибка при получении анекдота")
		return
	}
	writeJSON(w, http.StatusOK, views[0])
}

func (s *Server) handleViewJoke(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	clientID := s.ensureClientID(w, r)
	if err := s.deps.Votes.RecordView(r.Context(), id, clientID); err != nil {
		fail(w, r, err, "Ошибка при добавлении просмотра")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type voteRequest struct {
	Type models.InteractionType `json:"type"`
}

func (s *Server) handleVoteJoke(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	var req voteRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}

	clientID := s.ensureClientID(w, r)
	res, err := s.deps.Votes.Vote(r.Context(), id, clientID, req.Type)
	if err != nil {
		fail(w, r, err, "Ошибка при обработке голоса")
		return
	}
	writeJSON(w, http.StatusOK, jokeView{Joke: *res.Joke, UserVote: voteRef(res.UserVote)})
}

func (s *Server) handleRandomJokes(w http.ResponseWriter, r *http.Request) {
	sectionID, err := queryID(r, "sectionId")
	if err != nil {
		fail(w, r, err, "")
		return
	}
	exclude, err := queryID(r, "exclude")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	jokes, err := s.deps.Jokes.Random(r.Context(), database.RandomFilter{
		SectionID: sectionID,
		Exclude:   exclude,
		Limit:     clampLimit(queryInt(r, "limit", defaultRandomLimit)),
	})
	if err != nil {
		fail(w, r, err, "Ошибка сервера")
		return
	}
	s.writeJokes(w, r, jokes, "Ошибка сервера")
}

func (s *Server) handleTopJokes(w http.ResponseWriter, r *http.Request) {
	order := database.TopOrder(chi.URLParam(r, "order"))
	if !order.Valid() || order == database.Latest {
		writeError(w, http.StatusBadRequest, "Неизвестный порядок сортировки")
		return
	}
	s.listTop(w, r, order)
}

func (s *Server) handleLatestJokes(w http.ResponseWriter, r *http.Request) {
	s.listTop(w, r, database.Latest)
}

func (s *Server) listTop(w http.ResponseWriter, r *http.Request, order database.TopOrder) {
	limit := clampLimit(queryInt(r, "limit", defaultTopLimit))
	jokes, err := s.deps.Jokes.Top(r.Context(), order, limit)
	if err != nil {
		fail(w, r, err, "Внутренняя ошибка сервера")
		return
	}
	s.writeJokes(w, r, jokes, "Внутренняя ошибка сервера")
}

func (s *Server) handleSearchJokes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Search == nil {
		writeError(w, http.StatusServiceUnavailable, "Поиск недоступен")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Параметр q обязателен")
		return
	}
	sectionID, err := queryID(r, "sectionId")
	if err != nil {
		fail(w, r, err, "")
		return
	}
	limit := clampLimit(queryInt(r, "limit", defaultSearchLimit))

	hits, err := s.deps.Search.Search(q, sectionID, limit)
	if err != nil {
		fail(w, r, err, "Ошибка поиска")
		return
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.JokeID
	}
	found, err := s.deps.Jokes.GetByIDs(r.Context(), ids)
	if err != nil {
		fail(w, r, err, "Ошибка поиска")
		return
	}

	// Keep relevance order; hits whose joke vanished since indexing are dropped.
	byID := make(map[int64]models.Joke, len(found))
	for _, j := range found {
		byID[j.ID] = j
	}
	jokes := make([]models.Joke, 0, len(hits))
	for _, id := range ids {
		if j, ok := byID[id]; ok && j.IsPublished {
			jokes = append(jokes, j)
		}
	}
	s.writeJokes(w, r, jokes, "Ошибка поиска")
}

type createJokeRequest struct {
	SectionID   int64           `json:"sectionId"`
	Text        string          `json:"text"`
	IsPublished *bool           `json:"isPublished"`
	SEO         *models.JokeSEO `json:"seo"`
}

func (s *Server) handleCreateJoke(w http.ResponseWriter, r *http.Request) {
	var req createJokeRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Текст анекдота обязателен")
		return
	}

	if _, err := s.deps.Sections.GetByID(r.Context(), req.SectionID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Раздел не найден")
			return
		}
		fail(w, r, err, "Ошибка при создании анекдота")
		return
	}

	joke := models.Joke{
		SectionID:   req.SectionID,
		Text:        strings.TrimSpace(req.Text),
		IsPublished: true,
	}
	if req.IsPublished != nil {
		joke.IsPublished = *req.IsPublished
	}
	if req.SEO != nil {
		joke.SEO = *req.SEO
	}

	if err := s.deps.Jokes.Create(r.Context(), &joke); err != nil {
		fail(w, r, err, "Ошибка при создании анекдота")
		return
	}

	s.publish(r.Context(), queue.JokeCreated, &joke)
	writeJSON(w, http.StatusCreated, joke)
}

type updateJokeRequest struct {
	Text        *string `json:"text"`
	IsPublished *bool   `json:"isPublished"`
}

func (s *Server) handleUpdateJoke(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	var req updateJokeRequest
	if err := readJSON(r, &req); err != nil {
		fail(w, r, err, "")
		return
	}
	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			writeError(w, http.StatusBadRequest, "Текст анекдота не может быть пустым")
			return
		}
		req.Text = &text
	}

	joke, err := s.deps.Jokes.Update(r.Context(), id, database.JokeUpdate{
		Text:        req.Text,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		fail(w, r, err, "Ошибка при обновлении анекдота")
		return
	}

	s.publish(r.Context(), queue.JokeUpdated, joke)
	writeJSON(w, http.StatusOK, joke)
}

func (s *Server) handleDeleteJoke(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err, "")
		return
	}

	joke, err := s.deps.Jokes.Delete(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Ошибка при удалении анекдота")
		return
	}

	logger.Info("Joke deleted",
		logger.Int64("joke_id", id),
		logger.String("admin", adminFromContext(r.Context())),
	)
	s.publish(r.Context(), queue.JokeDeleted, joke)
	w.WriteHeader(http.StatusNoContent)
}

// publish announces a manual joke change. Failures are logged, not returned.
func (s *Server) publish(ctx context.Context, t queue.EventType, joke *models.Joke) {
	if s.deps.Events == nil {
		return
	}

	err := s.deps.Events.PublishJokeEvent(ctx, &queue.JokeEvent{
		Type:      t,
		JokeID:    joke.ID,
		SectionID: joke.SectionID,
		Generated: joke.IsGenerated,
		At:        time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to publish joke event",
			logger.String("type", string(t)),
			logger.Int64("joke_id", joke.ID),
			logger.Err(err),
		)
	}
}

package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"txtforge/internal/database"
	"txtforge/internal/models"
	"txtforge/internal/openrouter"
	"txtforge/internal/queue"
	"txtforge/internal/search"
	"txtforge/internal/voting/votingtest"
)

type fakeSections struct {
	mu       sync.Mutex
	sections map[int64]models.Section
	nextID   int64
}

func newFakeSections(sections ...models.Section) *fakeSections {
	f := &fakeSections{sections: make(map[int64]models.Section)}
	for _, s := range sections {
		f.sections[s.ID] = s
		f.nextID = max(f.nextID, s.ID)
	}
	return f
}

func (f *fakeSections) List(context.Context) ([]models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Section, 0, len(f.sections))
	for _, s := range f.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeSections) GetByID(_ context.Context, id int64) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sections[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSections) GetBySlug(_ context.Context, slug string) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sections {
		if s.Slug == slug {
			return &s, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeSections) Create(_ context.Context, s *models.Section) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sections {
		if existing.Slug == s.Slug {
			return database.ErrDuplicate
		}
	}
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.sections[s.ID] = *s
	return nil
}

func (f *fakeSections) Update(_ context.Context, id int64, u database.SectionUpdate) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sections[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Slug != nil {
		s.Slug = *u.Slug
	}
	if u.Icon != nil {
		s.Icon = *u.Icon
	}
	if u.Order != nil {
		s.Order = *u.Order
	}
	if u.SEO != nil {
		s.SEO = *u.SEO
	}
	f.sections[id] = s
	return &s, nil
}

func (f *fakeSections) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sections[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.sections, id)
	return nil
}

// fakeJokes reads and writes the same jokes the voting engine sees.
type fakeJokes struct {
	store  *votingtest.Store
	mu     sync.Mutex
	nextID int64
}

func newFakeJokes(store *votingtest.Store) *fakeJokes {
	f := &fakeJokes{store: store}
	for _, id := range store.JokeIDs() {
		f.nextID = max(f.nextID, id)
	}
	return f
}

func (f *fakeJokes) all() []models.Joke {
	ids := f.store.JokeIDs()
	out := make([]models.Joke, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if j, ok := f.store.Get(ids[i]); ok {
			out = append(out, j)
		}
	}
	return out
}

func (f *fakeJokes) List(_ context.Context, filter database.JokeFilter) ([]models.Joke, int, error) {
	var matched []models.Joke
	for _, j := range f.all() {
		if filter.SectionID != 0 && j.SectionID != filter.SectionID {
			continue
		}
		if filter.Published != nil && j.IsPublished != *filter.Published {
			continue
		}
		matched = append(matched, j)
	}

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (f *fakeJokes) GetByID(_ context.Context, id int64) (*models.Joke, error) {
	j, ok := f.store.Get(id)
	if !ok {
		return nil, database.ErrNotFound
	}
	return &j, nil
}

func (f *fakeJokes) Create(_ context.Context, j *models.Joke) error {
	f.mu.Lock()
	f.nextID++
	j.ID = f.nextID
	f.mu.Unlock()

	j.CreatedAt = time.Now()
	j.UpdatedAt = j.CreatedAt
	f.store.Put(*j)
	return nil
}

func (f *fakeJokes) Update(_ context.Context, id int64, u database.JokeUpdate) (*models.Joke, error) {
	j, ok := f.store.Get(id)
	if !ok {
		return nil, database.ErrNotFound
	}
	if u.Text != nil {
		j.Text = *u.Text
	}
	if u.IsPublished != nil {
		j.IsPublished = *u.IsPublished
	}
	f.store.Put(j)
	return &j, nil
}

func (f *fakeJokes) Delete(_ context.Context, id int64) (*models.Joke, error) {
	j, ok := f.store.Get(id)
	if !ok {
		return nil, database.ErrNotFound
	}
	f.store.Remove(id)
	return &j, nil
}

func (f *fakeJokes) Random(_ context.Context, filter database.RandomFilter) ([]models.Joke, error) {
	var out []models.Joke
	for _, j := range f.all() {
		if !j.IsPublished || j.ID == filter.Exclude {
			continue
		}
		if filter.SectionID != 0 && j.SectionID != filter.SectionID {
			continue
		}
		if len(out) == filter.Limit {
			break
		}
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeJokes) Top(_ context.Context, order database.TopOrder, limit int) ([]models.Joke, error) {
	var out []models.Joke
	for _, j := range f.all() {
		if j.IsPublished {
			out = append(out, j)
		}
	}
	key := func(j models.Joke) int {
		switch order {
		case database.TopByLikes:
			return j.Likes
		case database.TopByViews:
			return j.Views
		case database.TopByDislikes:
			return j.Dislikes
		default:
			return int(j.ID)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return key(out[a]) > key(out[b]) })
	return out[:min(limit, len(out))], nil
}

// GetByIDs answers in ascending id order, like the SQL repository without ORDER BY guarantees.
func (f *fakeJokes) GetByIDs(_ context.Context, ids []int64) ([]models.Joke, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	var out []models.Joke
	for _, id := range sorted {
		if j, ok := f.store.Get(id); ok {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeSettings struct {
	mu       sync.Mutex
	settings *models.AISettings
	nextID   int64
}

func (f *fakeSettings) Get(context.Context) (*models.AISettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return nil, database.ErrNotFound
	}
	cp := *f.settings
	cp.Models = append([]models.AIModel(nil), f.settings.Models...)
	return &cp, nil
}

func (f *fakeSettings) SetAPIKey(ctx context.Context, key string) (*models.AISettings, error) {
	f.mu.Lock()
	if f.settings == nil {
		f.settings = &models.AISettings{ID: 1}
	}
	f.settings.OpenRouterAPIKey = key
	f.mu.Unlock()
	return f.Get(ctx)
}

func (f *fakeSettings) AddModel(_ context.Context, name, modelID string) (*models.AIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return nil, database.ErrNotFound
	}
	if _, ok := f.settings.FindModel(modelID); ok {
		return nil, database.ErrDuplicate
	}
	f.nextID++
	m := models.AIModel{ID: f.nextID, Name: name, ModelID: modelID, IsActive: true}
	f.settings.Models = append(f.settings.Models, m)
	return &m, nil
}

func (f *fakeSettings) DeleteModel(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return database.ErrNotFound
	}
	for i, m := range f.settings.Models {
		if m.ID == id {
			f.settings.Models = append(f.settings.Models[:i], f.settings.Models[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeModels struct {
	completion  string
	completeErr error
	catalogue   []openrouter.Model
	keyValid    bool
	validateErr error

	gotModel  string
	gotPrompt string
}

func (f *fakeModels) Complete(_ context.Context, _, model, prompt string) (string, error) {
	f.gotModel, f.gotPrompt = model, prompt
	return f.completion, f.completeErr
}

func (f *fakeModels) ListModels(context.Context, string) ([]openrouter.Model, error) {
	return f.catalogue, nil
}

func (f *fakeModels) ValidateKey(context.Context, string) (bool, error) {
	return f.keyValid, f.validateErr
}

type fakeGenerators struct {
	mu   sync.Mutex
	jobs map[int64]models.ContentGenerator
	next int64
}

func newFakeGenerators(jobs ...models.ContentGenerator) *fakeGenerators {
	f := &fakeGenerators{jobs: make(map[int64]models.ContentGenerator)}
	for _, j := range jobs {
		f.jobs[j.ID] = j
		f.next = max(f.next, j.ID)
	}
	return f
}

func (f *fakeGenerators) List(context.Context) ([]models.ContentGenerator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ContentGenerator, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return out, nil
}

func (f *fakeGenerators) GetByID(_ context.Context, id int64) (*models.ContentGenerator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &j, nil
}

func (f *fakeGenerators) Create(_ context.Context, g *models.ContentGenerator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	g.ID = f.next
	f.jobs[g.ID] = *g
	return nil
}

func (f *fakeGenerators) Update(_ context.Context, id int64, u database.GeneratorUpdate) (*models.ContentGenerator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if u.SectionID != nil {
		j.SectionID = *u.SectionID
	}
	if u.ModelID != nil {
		j.ModelID = *u.ModelID
	}
	if u.Prompt != nil {
		j.Prompt = *u.Prompt
	}
	if u.IntervalMinutes != nil {
		j.IntervalMinutes = *u.IntervalMinutes
	}
	if u.IsActive != nil {
		j.IsActive = *u.IsActive
	}
	f.jobs[id] = j
	return &j, nil
}

func (f *fakeGenerators) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}

func (f *fakeGenerators) BatchSetInterval(_ context.Context, ids []int64, minutes int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if j, ok := f.jobs[id]; ok {
			j.IntervalMinutes = minutes
			f.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (f *fakeGenerators) BatchSetActive(_ context.Context, ids []int64, active bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if j, ok := f.jobs[id]; ok {
			j.IsActive = active
			f.jobs[id] = j
			n++
		}
	}
	return n, nil
}

type fakeRunner struct {
	joke *models.Joke
	err  error
	at   time.Time
}

func (f *fakeRunner) RunJob(_ context.Context, job *models.ContentGenerator) (*models.Joke, error) {
	if f.err != nil {
		return nil, f.err
	}
	job.LastRun = &f.at
	return f.joke, nil
}

type fakeCodeInjection struct {
	ci *models.CodeInjection
}

func (f *fakeCodeInjection) Get(context.Context) (*models.CodeInjection, error) {
	if f.ci == nil {
		return nil, database.ErrNotFound
	}
	return f.ci, nil
}

func (f *fakeCodeInjection) Save(_ context.Context, headerCode string) (*models.CodeInjection, error) {
	f.ci = &models.CodeInjection{ID: 1, HeaderCode: headerCode, UpdatedAt: time.Now()}
	return f.ci, nil
}

type fakeSearch struct {
	hits []search.Hit
	got  string
}

func (f *fakeSearch) Search(text string, _ int64, limit int) ([]search.Hit, error) {
	f.got = text
	return f.hits[:min(limit, len(f.hits))], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.JokeEvent
}

func (p *recordingPublisher) PublishJokeEvent(_ context.Context, e *queue.JokeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

package search

import (
	"path/filepath"
	"testing"

	"txtforge/internal/models"
)

func openMem(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	idx := openMem(t)

	jokes := []models.Joke{
		{ID: 1, SectionID: 1, Text: "Программист пришёл домой и лёг спать", IsPublished: true},
		{ID: 2, SectionID: 2, Text: "Встречаются два программист и тестировщик", IsPublished: true},
		{ID: 3, SectionID: 1, Text: "Кот сидит на окне", IsPublished: true},
		{ID: 4, SectionID: 1, Text: "Программист без публикации", IsPublished: false},
	}
	if err := idx.IndexBatch(jokes); err != nil {
		t.Fatalf("IndexBatch() error: %v", err)
	}

	count, err := idx.Count()
	if err != nil || count != 3 {
		t.Errorf("Count() = %d, %v; want 3", count, err)
	}

	hits, err := idx.Search("программист", 0, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search() = %v, want 2 hits", hits)
	}

	hits, err = idx.Search("программист", 2, 10)
	if err != nil {
		t.Fatalf("Search(section) error: %v", err)
	}
	if len(hits) != 1 || hits[0].JokeID != 2 {
		t.Errorf("Search(section 2) = %v", hits)
	}
}

func TestIndexJokeUnpublishRemoves(t *testing.T) {
	idx := openMem(t)

	j := &models.Joke{ID: 7, SectionID: 1, Text: "Анекдот про кота", IsPublished: true}
	if err := idx.IndexJoke(j); err != nil {
		t.Fatalf("IndexJoke() error: %v", err)
	}

	j.IsPublished = false
	if err := idx.IndexJoke(j); err != nil {
		t.Fatalf("IndexJoke(unpublished) error: %v", err)
	}

	if count, _ := idx.Count(); count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}

func TestDelete(t *testing.T) {
	idx := openMem(t)

	idx.IndexJoke(&models.Joke{ID: 1, Text: "один", IsPublished: true})
	idx.IndexJoke(&models.Joke{ID: 2, Text: "два", IsPublished: true})

	if err := idx.Delete(1); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if count, _ := idx.Count(); count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jokes.bleve")

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	idx.IndexJoke(&models.Joke{ID: 1, Text: "сохранённый анекдот", IsPublished: true})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	if count, _ := reopened.Count(); count != 1 {
		t.Errorf("Count() after reopen = %d, want 1", count)
	}
}

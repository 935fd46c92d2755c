package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name  string
		total int
		page  int
		limit int
		want  Pagination
	}{
		{"first of three", 25, 1, 9, Pagination{Total: 25, Pages: 3, CurrentPage: 1, HasMore: true}},
		{"last of three", 25, 3, 9, Pagination{Total: 25, Pages: 3, CurrentPage: 3, HasMore: false}},
		{"exact fit", 18, 2, 9, Pagination{Total: 18, Pages: 2, CurrentPage: 2, HasMore: false}},
		{"empty", 0, 1, 9, Pagination{Total: 0, Pages: 0, CurrentPage: 1, HasMore: false}},
		{"past the end", 5, 4, 9, Pagination{Total: 5, Pages: 1, CurrentPage: 4, HasMore: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPagination(tt.total, tt.page, tt.limit)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NewPagination() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultSectionSEO(t *testing.T) {
	seo := DefaultSectionSEO("Работа")

	want := SectionSEO{
		Title:       "Работа - Анекдоты и шутки | TxtForge",
		Description: "Коллекция самых смешных анекдотов и шуток в категории \"Работа\". Ежедневное обновление, только лучший юмор.",
		Keywords:    "анекдоты работа, шутки, юмор, смешные истории",
		Tags:        []string{"работа", "анекдоты", "юмор"},
		H1:          "Анекдоты про работа",
	}
	if diff := cmp.Diff(want, seo); diff != "" {
		t.Errorf("DefaultSectionSEO() mismatch (-want +got):\n%s", diff)
	}
}

func TestFillDefaultsKeepsExplicitValues(t *testing.T) {
	seo := SectionSEO{Title: "Custom title"}
	seo.FillDefaults("Кино")

	if seo.Title != "Custom title" {
		t.Errorf("Title overwritten: %s", seo.Title)
	}
	if seo.H1 != "Анекдоты про кино" {
		t.Errorf("H1 = %s", seo.H1)
	}
	if len(seo.Tags) != 3 {
		t.Errorf("Tags = %v", seo.Tags)
	}
}

func TestFindModel(t *testing.T) {
	settings := AISettings{Models: []AIModel{
		{ID: 1, Name: "Claude", ModelID: "anthropic/claude-3.5-sonnet"},
		{ID: 2, Name: "GPT", ModelID: "openai/gpt-4o-mini"},
	}}

	m, ok := settings.FindModel("openai/gpt-4o-mini")
	if !ok || m.ID != 2 {
		t.Errorf("FindModel() = %+v, %v", m, ok)
	}

	if _, ok := settings.FindModel("2"); ok {
		t.Error("FindModel must match modelId, not record id")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"abc", "...abc"},
		{"sk-or-v1-1234567890", "...7890"},
	}

	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestInteractionTypeIsVote(t *testing.T) {
	if InteractionView.IsVote() {
		t.Error("view is not a vote")
	}
	if !InteractionLike.IsVote() || !InteractionDislike.IsVote() {
		t.Error("like and dislike are votes")
	}
	if InteractionType("love").IsVote() {
		t.Error("unknown type is not a vote")
	}
}

func TestGeneratorInterval(t *testing.T) {
	g := ContentGenerator{IntervalMinutes: 90}
	if g.Interval() != 90*time.Minute {
		t.Errorf("Interval() = %v", g.Interval())
	}
}

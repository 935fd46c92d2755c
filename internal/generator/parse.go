package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"txtforge/internal/models"
)

const timestampPlaceholder = "{{currentTimestamp}}"

var ErrMalformedResponse = errors.New("malformed model response")

// FillPrompt substitutes every timestamp placeholder with now in epoch milliseconds.
func FillPrompt(prompt string, now time.Time) string {
	return strings.ReplaceAll(prompt, timestampPlaceholder, strconv.FormatInt(now.UnixMilli(), 10))
}

type Generated struct {
	Content string
	SEO     models.JokeSEO
}

type generatedPayload struct {
	Content *string `json:"content"`
	SEO     *struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Keywords    *string   `json:"keywords"`
		Tags        *[]string `json:"tags"`
	} `json:"seo"`
}

// ParseGenerated decodes a model answer. The answer must be a JSON object,
// optionally inside a ``` fence, with content and a complete seo block.
func ParseGenerated(text string) (*Generated, error) {
	raw := stripFence(strings.TrimSpace(text))

	var p generatedPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case blank(p.Content):
		return nil, fmt.Errorf("%w: missing content", ErrMalformedResponse)
	case p.SEO == nil:
		return nil, fmt.Errorf("%w: missing seo", ErrMalformedResponse)
	case blank(p.SEO.Title):
		return nil, fmt.Errorf("%w: missing seo.title", ErrMalformedResponse)
	case blank(p.SEO.Description):
		return nil, fmt.Errorf("%w: missing seo.description", ErrMalformedResponse)
	case blank(p.SEO.Keywords):
		return nil, fmt.Errorf("%w: missing seo.keywords", ErrMalformedResponse)
	case p.SEO.Tags == nil || *p.SEO.Tags == nil:
		return nil, fmt.Errorf("%w: missing seo.tags", ErrMalformedResponse)
	}

	return &Generated{
		Content: strings.TrimSpace(*p.Content),
		SEO: models.JokeSEO{
			Title:       *p.SEO.Title,
			Description: *p.SEO.Description,
			Keywords:    *p.SEO.Keywords,
			Tags:        *p.SEO.Tags,
		},
	}, nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

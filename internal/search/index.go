// Package search keeps a bleve full-text index over published jokes.
package search

import (
	"errors"
	"fmt"
	"strconv"

	"txtforge/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

type Index struct {
	index bleve.Index
}

// Document is the indexed shape of a joke.
type Document struct {
	Text      string   `json:"text"`
	Title     string   `json:"title"`
	Keywords  string   `json:"keywords"`
	Tags      []string `json:"tags"`
	SectionID float64  `json:"section_id"`
}

type Hit struct {
	JokeID int64
	Score  float64
}

// Open opens the index at path, creating it when missing. An empty path
// gives an in-memory index that is rebuilt on every start.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = ru.AnalyzerName

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = ru.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("keywords", textFieldMapping)
	docMapping.AddFieldMappingsAt("tags", textFieldMapping)
	docMapping.AddFieldMappingsAt("section_id", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = ru.AnalyzerName
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

func (i *Index) Close() error {
	return i.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func newDocument(j *models.Joke) Document {
	return Document{
		Text:      j.Text,
		Title:     j.SEO.Title,
		Keywords:  j.SEO.Keywords,
		Tags:      j.SEO.Tags,
		SectionID: float64(j.SectionID),
	}
}

// IndexJoke adds or replaces a joke. Unpublished jokes are removed instead.
func (i *Index) IndexJoke(j *models.Joke) error {
	if !j.IsPublished {
		return i.Delete(j.ID)
	}
	return i.index.Index(docID(j.ID), newDocument(j))
}

func (i *Index) Delete(id int64) error {
	return i.index.Delete(docID(id))
}

// IndexBatch indexes published jokes in a single batch.
func (i *Index) IndexBatch(jokes []models.Joke) error {
	batch := i.index.NewBatch()
	for idx := range jokes {
		j := &jokes[idx]
		if !j.IsPublished {
			batch.Delete(docID(j.ID))
			continue
		}
		if err := batch.Index(docID(j.ID), newDocument(j)); err != nil {
			return fmt.Errorf("batch index %d: %w", j.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search matches text against joke bodies and SEO fields, optionally inside one section.
func (i *Index) Search(text string, sectionID int64, limit int) ([]Hit, error) {
	body := bleve.NewMatchQuery(text)
	body.SetField("text")

	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(2)

	keywords := bleve.NewMatchQuery(text)
	keywords.SetField("keywords")

	var q query.Query = bleve.NewDisjunctionQuery(body, title, keywords)
	if sectionID != 0 {
		v := float64(sectionID)
		inclusive := true
		section := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		section.SetField("section_id")
		q = bleve.NewConjunctionQuery(q, section)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{JokeID: id, Score: h.Score})
	}
	return hits, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

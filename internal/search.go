package internal

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchResult is one session matched by a full-text query, with the
// summed score of all matching documents belonging to it.
type SearchResult struct {
	SessionID string  `json:"session_id"`
	Score     float64 `json:"score"`
}

// searchDoc is the indexed representation of one message (or the title)
// of a session.
type searchDoc struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// SearchIndex provides full-text search over session titles and message
// contents, one document per message plus one per title.
type SearchIndex struct {
	index bleve.Index
}

// searchResultLimit bounds the matched documents per query
const searchResultLimit = 100

// OpenSearchIndex opens the index at path, creating it when absent
func OpenSearchIndex(path string) (*SearchIndex, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		idx, err := bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
		return &SearchIndex{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	return &SearchIndex{index: idx}, nil
}

// buildIndexMapping defines the document shape: session_id is stored
// verbatim for aggregation and deletion, title and content are analyzed
// for full-text matching.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	sessionID := bleve.NewTextFieldMapping()
	sessionID.Analyzer = keyword.Name
	sessionID.Store = true
	sessionID.IncludeInAll = false
	docMapping.AddFieldMappingsAt("session_id", sessionID)

	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("content", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the underlying index
func (s *SearchIndex) Close() error {
	return s.index.Close()
}

// AddOrUpdateSession replaces all indexed documents for the session
func (s *SearchIndex) AddOrUpdateSession(session *Session) error {
	if err := s.RemoveSession(session.ID); err != nil {
		return err
	}

	batch := s.index.NewBatch()
	if err := batch.Index(session.ID+"#title", searchDoc{
		SessionID: session.ID,
		Title:     session.Title,
	}); err != nil {
		return fmt.Errorf("failed to index session title: %w", err)
	}
	for i, m := range session.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		docID := fmt.Sprintf("%s#%d", session.ID, i)
		if err := batch.Index(docID, searchDoc{
			SessionID: session.ID,
			Title:     session.Title,
			Content:   m.Content,
		}); err != nil {
			return fmt.Errorf("failed to index message: %w", err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply index batch: %w", err)
	}
	return nil
}

// RemoveSession deletes every document belonging to the session
func (s *SearchIndex) RemoveSession(sessionID string) error {
	q := query.NewTermQuery(sessionID)
	q.SetField("session_id")

	req := bleve.NewSearchRequest(q)
	req.Size = 10000
	res, err := s.index.Search(req)
	if err != nil {
		return fmt.Errorf("failed to find session documents: %w", err)
	}

	batch := s.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete session documents: %w", err)
	}
	return nil
}

// RebuildIndex drops all documents and reindexes the given sessions,
// returning the number of documents written.
func (s *SearchIndex) RebuildIndex(sessions []*Session) (int, error) {
	// Drop everything currently indexed.
	all := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	all.Size = 100000
	res, err := s.index.Search(all)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate index: %w", err)
	}
	batch := s.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	if err := s.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	count := 0
	for _, session := range sessions {
		if err := s.AddOrUpdateSession(session); err != nil {
			return count, err
		}
		count++ // title document
		for _, m := range session.Messages {
			if m.Role == RoleUser || m.Role == RoleAssistant {
				count++
			}
		}
	}
	LogInfo("rebuilt search index: %d documents across %d sessions", count, len(sessions))
	return count, nil
}

// Search runs a full-text query over titles and contents and aggregates
// document scores per session. Sessions matched by several messages rank
// higher than sessions matched once. Results are ordered by score
// descending.
func (s *SearchIndex) Search(queryStr string) ([]SearchResult, error) {
	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return nil, nil
	}

	q := bleve.NewMatchQuery(queryStr)
	req := bleve.NewSearchRequest(q)
	req.Size = searchResultLimit
	req.Fields = []string{"session_id"}

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	scores := make(map[string]float64)
	for _, hit := range res.Hits {
		sessionID, ok := hit.Fields["session_id"].(string)
		if !ok {
			continue
		}
		scores[sessionID] += hit.Score
	}

	results := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, SearchResult{SessionID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

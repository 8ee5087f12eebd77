package services

import (
	"context"
	"log"
	"sort"
	"strings"

	"planner/internal/models"
)

// AssignmentSearchStore returns the user's assignments whose name contains
// the lowercase term.
type AssignmentSearchStore interface {
	SearchAssignments(ctx context.Context, userID, term string) ([]models.Assignment, error)
}

type SearchResult struct {
	Assignment models.Assignment `json:"assignment"`
	Score      float64           `json:"score"`
}

type SearchService struct {
	store  AssignmentSearchStore
	logger *log.Logger
}

func NewSearchService(store AssignmentSearchStore) *SearchService {
	return &SearchService{store: store, logger: log.Default()}
}

// WithLogger replaces the service logger
func (s *SearchService) WithLogger(l *log.Logger) *SearchService {
	if l != nil {
		s.logger = l
	}
	return s
}

// SearchAssignments ranks the user's assignments against searchTerm.
// Exact names outrank prefixes, which outrank word prefixes and plain
// substrings. Equal scores keep the earlier deadline first.
func (s *SearchService) SearchAssignments(ctx context.Context, userID, searchTerm string, limit, offset int) ([]SearchResult, error) {
	cleanTerm := strings.ToLower(strings.TrimSpace(searchTerm))
	if cleanTerm == "" {
		return []SearchResult{}, nil
	}

	candidates, err := s.store.SearchAssignments(ctx, userID, cleanTerm)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, strategy := range searchStrategies {
		for _, a := range candidates {
			if score, ok := strategy(strings.ToLower(a.Name), cleanTerm); ok {
				results = append(results, SearchResult{Assignment: a, Score: score})
			}
		}
	}

	combined := combineAndRankResults(results)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(combined) {
		return []SearchResult{}, nil
	}
	end := len(combined)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return combined[offset:end], nil
}

type searchStrategy func(name, term string) (float64, bool)

var searchStrategies = []searchStrategy{
	// exact
	func(name, term string) (float64, bool) { return 100, name == term },
	// prefix
	func(name, term string) (float64, bool) { return 75, strings.HasPrefix(name, term) },
	// word prefix
	func(name, term string) (float64, bool) {
		for _, word := range strings.Fields(name) {
			if strings.HasPrefix(word, term) {
				return 60, true
			}
		}
		return 0, false
	},
	// substring, weighted by how much of the name the term covers
	func(name, term string) (float64, bool) {
		if !strings.Contains(name, term) {
			return 0, false
		}
		return 20 + 20*float64(len(term))/float64(len(name)), true
	},
}

// combineAndRankResults keeps the best score per assignment and sorts by
// score, then due date.
func combineAndRankResults(results []SearchResult) []SearchResult {
	best := make(map[string]SearchResult)
	for _, r := range results {
		if existing, ok := best[r.Assignment.ID]; !ok || r.Score > existing.Score {
			best[r.Assignment.ID] = r
		}
	}

	combined := make([]SearchResult, 0, len(best))
	for _, r := range best {
		combined = append(combined, r)
	}
	sort.Slice(combined, func(i, j int) bool {
		if combined[i].Score != combined[j].Score {
			return combined[i].Score > combined[j].Score
		}
		if !combined[i].Assignment.DueAt.Equal(combined[j].Assignment.DueAt) {
			return combined[i].Assignment.DueAt.Before(combined[j].Assignment.DueAt)
		}
		return combined[i].Assignment.ID < combined[j].Assignment.ID
	})
	return combined
}

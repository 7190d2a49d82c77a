// Package inmemory provides a grant store that serves listings, matches and
// favorites from memory. It backs offline mode and tests.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/pagination"
)

// Store implements grantsx.Lister, grantsx.Matcher and
// grantsx.FavoritesLister over an in-memory grant list.
type Store struct {
	mu        sync.RWMutex
	grants    []grantsx.Grant
	idIndex   map[string]int // maps grant ID to index in grants slice
	favorites map[string]struct{}
}

// New creates an empty store.
// The store is ready to use and is safe for concurrent operations.
func New() *Store {
	return &Store{
		grants:    make([]grantsx.Grant, 0),
		idIndex:   make(map[string]int),
		favorites: make(map[string]struct{}),
	}
}

// Put adds a grant to the store.
// If a grant with the same ID already exists, it will be updated.
func (s *Store) Put(g grantsx.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, exists := s.idIndex[g.ID]; exists {
		s.grants[idx] = g
		return
	}
	s.idIndex[g.ID] = len(s.grants)
	s.grants = append(s.grants, g)
}

// PutJSON parses a grant payload and adds it to the store.
func (s *Store) PutJSON(data []byte) error {
	var g grantsx.Grant
	if err := json.Unmarshal(data, &g); err != nil {
		return errors.Wrap(err, "failed to unmarshal grant")
	}
	if g.ID == "" {
		return errors.New("grant payload has no id")
	}
	s.Put(g)
	return nil
}

// Load reads a JSON array of grant payloads from r and adds them all.
func (s *Store) Load(r io.Reader) error {
	var grants []grantsx.Grant
	if err := json.NewDecoder(r).Decode(&grants); err != nil {
		return errors.Wrap(err, "failed to decode grants")
	}
	for i, g := range grants {
		if g.ID == "" {
			return errors.Newf("grant at index %d has no id", i)
		}
		s.Put(g)
	}
	return nil
}

// Remove deletes a grant by ID. It reports whether the grant was found.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.idIndex[id]
	if !exists {
		return false
	}

	s.grants = append(s.grants[:idx], s.grants[idx+1:]...)

	delete(s.idIndex, id)
	for i := idx; i < len(s.grants); i++ {
		s.idIndex[s.grants[i].ID] = i
	}
	delete(s.favorites, id)
	return true
}

// Clear removes all grants and favorites.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants = make([]grantsx.Grant, 0)
	s.idIndex = make(map[string]int)
	s.favorites = make(map[string]struct{})
}

// Size returns the number of stored grants.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants)
}

// Favorite marks the grant ids as saved.
func (s *Store) Favorite(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.favorites[id] = struct{}{}
	}
}

// ListFavorites implements grantsx.FavoritesLister.
func (s *Store) ListFavorites(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, grantsx.ErrCanceled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.favorites))
	for id := range s.favorites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListGrants implements grantsx.Lister. Grants matching the search term and
// filters are ordered by relevance and then by insertion order.
func (s *Store) ListGrants(ctx context.Context, p grantsx.Params) (*grantsx.Page, error) {
	matches, err := s.collect(ctx, p.Search, p.Filters().Expressions())
	if err != nil {
		return nil, err
	}

	size := pagination.PageSize(p.Limit)
	if p.Limit <= 0 {
		size = pagination.DefaultPageSize
	}

	items := make([]grantsx.Grant, 0, int(size))
	for _, m := range pagination.Slice(matches, p.Page, size) {
		items = append(items, m.grant)
	}
	return &grantsx.Page{
		Items:      items,
		TotalItems: len(matches),
		TotalPages: pagination.TotalPages(len(matches), size),
	}, nil
}

// Match implements grantsx.Matcher. The match percentage is the share of
// query terms found in the grant.
func (s *Store) Match(ctx context.Context, query string, opts ...grantsx.MatchOption) ([]grantsx.Grant, error) {
	if err := grantsx.ValidateQuery(query); err != nil {
		return nil, err
	}
	cfg := grantsx.NewMatchConfig(opts...)

	matches, err := s.collect(ctx, query, cfg.Filters)
	if err != nil {
		return nil, err
	}

	out := make([]grantsx.Grant, 0, min(len(matches), cfg.Limit))
	for _, m := range matches {
		if len(out) == cfg.Limit {
			break
		}
		if m.percent < cfg.MinScore {
			continue
		}
		out = append(out, m.grant.WithMatch(m.percent))
	}
	return out, nil
}

type scoredGrant struct {
	grant   grantsx.Grant
	score   float64
	percent float64
}

func (s *Store) collect(ctx context.Context, query string, filters []grantsx.Expression) ([]scoredGrant, error) {
	if ctx.Err() != nil {
		return nil, grantsx.ErrCanceled
	}

	terms := strings.Fields(strings.ToLower(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []scoredGrant
	for _, g := range s.grants {
		select {
		case <-ctx.Done():
			return nil, grantsx.ErrCanceled
		default:
		}

		if !matchesFilters(g, filters) {
			continue
		}
		score, percent := scoreGrant(g, terms)
		if score > 0 {
			matches = append(matches, scoredGrant{grant: g, score: score, percent: percent})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	return matches, nil
}

// scoreGrant returns a relevance score and the percentage of terms matched.
func scoreGrant(g grantsx.Grant, terms []string) (float64, float64) {
	if len(terms) == 0 {
		return 1.0, 100
	}

	values := searchableValues(g)
	score := 0.0
	matchedTerms := 0
	for _, term := range terms {
		termMatched := false
		for _, value := range values {
			if valueContainsTerm(value, term) {
				termMatched = true
				score += 1.0
			}
		}
		if termMatched {
			matchedTerms++
		}
	}

	if matchedTerms == 0 {
		return 0, 0
	}
	if matchedTerms == len(terms) {
		score *= 1.5
	}
	return score, 100 * float64(matchedTerms) / float64(len(terms))
}

// searchableValues returns the payload values plus typed fields the payload lacks.
func searchableValues(g grantsx.Grant) []interface{} {
	values := make([]interface{}, 0, len(g.Fields)+3)
	for _, v := range g.Fields {
		values = append(values, v)
	}
	for key, v := range map[string]string{
		grantsx.FieldTitle:      g.Title,
		grantsx.FieldAgencyName: g.AgencyName,
		grantsx.FieldCity:       g.City,
	} {
		if _, ok := g.Fields[key]; !ok && v != "" {
			values = append(values, v)
		}
	}
	return values
}

func valueContainsTerm(value interface{}, term string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case []interface{}:
		for _, item := range v {
			if valueContainsTerm(item, term) {
				return true
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			if valueContainsTerm(item, term) {
				return true
			}
		}
	case nil:
	default:
		return strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), term)
	}
	return false
}

var (
	_ grantsx.Lister          = (*Store)(nil)
	_ grantsx.Matcher         = (*Store)(nil)
	_ grantsx.FavoritesLister = (*Store)(nil)
)

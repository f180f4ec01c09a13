// Package catalog holds the immutable store snapshot served by search and planning,
// and the machinery that replaces it on reload.
package catalog

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"itinerary/internal/model"
)

// DefaultLimit is the search page size when the caller passes limit <= 0.
const DefaultLimit = 20

// Snapshot is a read-only view of the catalog. It is safe for concurrent use without locking.
type Snapshot struct {
	stores     []model.Store
	byID       map[int]int
	byCategory map[string][]int
	version    string
	source     string
	loadedAt   time.Time
}

// Hit is a search result with its planar distance from the query origin.
type Hit struct {
	model.Store
	Distance float64 `json:"distance"`
}

// NewSnapshot copies stores, ordered by id, into a new snapshot.
func NewSnapshot(stores []model.Store, source string) *Snapshot {
	cp := make([]model.Store, len(stores))
	copy(cp, stores)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })
	s := &Snapshot{
		stores:     cp,
		byID:       make(map[int]int, len(cp)),
		byCategory: map[string][]int{},
		version:    uuid.New().String(),
		source:     source,
		loadedAt:   time.Now().UTC(),
	}
	for i, st := range cp {
		s.byID[st.ID] = i
		s.byCategory[st.Category] = append(s.byCategory[st.Category], i)
	}
	return s
}

// Empty returns a snapshot with no stores.
func Empty() *Snapshot { return NewSnapshot(nil, "empty") }

func (s *Snapshot) Len() int            { return len(s.stores) }
func (s *Snapshot) Version() string     { return s.version }
func (s *Snapshot) Source() string      { return s.source }
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Stores returns a copy of the catalog in id order.
func (s *Snapshot) Stores() []model.Store {
	out := make([]model.Store, len(s.stores))
	copy(out, s.stores)
	return out
}

func (s *Snapshot) Info() model.CatalogInfo {
	return model.CatalogInfo{
		Version:  s.version,
		Source:   s.source,
		Size:     len(s.stores),
		LoadedAt: s.loadedAt.Format(time.RFC3339),
	}
}

// ByID looks up a store by its ingestion id.
func (s *Snapshot) ByID(id int) (model.Store, bool) {
	i, ok := s.byID[id]
	if !ok {
		return model.Store{}, false
	}
	return s.stores[i], true
}

// Categories lists distinct categories with store counts, most populated first.
func (s *Snapshot) Categories() []model.CategoryCount {
	out := make([]model.CategoryCount, 0, len(s.byCategory))
	for c, idx := range s.byCategory {
		out = append(out, model.CategoryCount{Category: c, Count: len(idx)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// IsAllCategories reports whether category means "no filter".
func IsAllCategories(category string) bool {
	c := strings.TrimSpace(category)
	return c == "" || strings.EqualFold(c, "all") || c == "전체"
}

// Search returns up to limit stores of the given category nearest to origin.
func (s *Snapshot) Search(category string, origin model.GeoPoint, limit int) []model.Store {
	hits := s.Nearest(category, origin, limit)
	out := make([]model.Store, len(hits))
	for i, h := range hits {
		out[i] = h.Store
	}
	return out
}

// Nearest is Search with distances attached.
func (s *Snapshot) Nearest(category string, origin model.GeoPoint, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var hits []Hit
	if IsAllCategories(category) {
		hits = s.rank(allIndexes(len(s.stores)), origin)
	} else {
		hits = s.Ranked(strings.TrimSpace(category), origin)
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Ranked returns every store whose category equals category exactly, ordered by
// planar distance from origin with ties broken by ascending id.
func (s *Snapshot) Ranked(category string, origin model.GeoPoint) []Hit {
	return s.rank(s.byCategory[category], origin)
}

func (s *Snapshot) rank(idx []int, origin model.GeoPoint) []Hit {
	hits := make([]Hit, 0, len(idx))
	for _, i := range idx {
		st := s.stores[i]
		hits = append(hits, Hit{Store: st, Distance: PlanarDistance(origin, st.Point())})
	}
	// idx is in id order, so a stable sort on distance keeps id order among ties
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	return hits
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// PlanarDistance treats lat/lng degrees as Cartesian coordinates. It is only a sensible
// ranking over a small area (a single market district) and is used for all selection.
func PlanarDistance(a, b model.GeoPoint) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary/internal/model"
)

func fixture() []model.Store {
	// inserted out of id order on purpose
	return []model.Store{
		{ID: 3, Name: "C", Category: model.CategoryCafe, Lat: 0, Lng: 2},
		{ID: 1, Name: "A", Category: model.CategoryCafe, Lat: 0, Lng: 1},
		{ID: 2, Name: "B", Category: model.CategoryDessert, Lat: 0, Lng: 1.5},
		{ID: 4, Name: "D", Category: model.CategoryCafe, Lat: 1, Lng: 0},
	}
}

func ids(stores []model.Store) []int {
	out := make([]int, len(stores))
	for i, s := range stores {
		out[i] = s.ID
	}
	return out
}

func TestSearchOrdersByDistanceThenID(t *testing.T) {
	snap := NewSnapshot(fixture(), "test")
	origin := model.GeoPoint{}

	// A and D are both 1.0 away; the lower id comes first
	assert.Equal(t, []int{1, 4, 3}, ids(snap.Search(model.CategoryCafe, origin, 0)))
	assert.Equal(t, []int{1, 4}, ids(snap.Search(model.CategoryCafe, origin, 2)))
	assert.Equal(t, []int{2}, ids(snap.Search(model.CategoryDessert, origin, 10)))
	assert.Empty(t, snap.Search("Bookstore", origin, 10))
}

func TestSearchAllCategories(t *testing.T) {
	snap := NewSnapshot(fixture(), "test")
	for _, c := range []string{"", "all", "ALL", "전체", "  "} {
		assert.Equal(t, []int{1, 4, 2, 3}, ids(snap.Search(c, model.GeoPoint{}, 0)), "category %q", c)
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	var stores []model.Store
	for i := 1; i <= 30; i++ {
		stores = append(stores, model.Store{ID: i, Name: "s", Category: model.CategoryMart, Lat: float64(i), Lng: 0})
	}
	snap := NewSnapshot(stores, "test")
	assert.Len(t, snap.Search(model.CategoryMart, model.GeoPoint{}, 0), DefaultLimit)
	assert.Len(t, snap.Search(model.CategoryMart, model.GeoPoint{}, -5), DefaultLimit)
	assert.Len(t, snap.Search(model.CategoryMart, model.GeoPoint{}, 25), 25)
}

func TestNearestCarriesDistance(t *testing.T) {
	snap := NewSnapshot(fixture(), "test")
	hits := snap.Nearest(model.CategoryCafe, model.GeoPoint{}, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-12)
}

func TestSnapshotIsolatedFromInput(t *testing.T) {
	in := fixture()
	snap := NewSnapshot(in, "test")
	in[0].Name = "mutated"

	st, ok := snap.ByID(3)
	require.True(t, ok)
	assert.Equal(t, "C", st.Name)

	out := snap.Stores()
	out[0].Name = "mutated"
	st, _ = snap.ByID(1)
	assert.Equal(t, "A", st.Name)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(snap.Stores()))

	_, ok = snap.ByID(99)
	assert.False(t, ok)
}

func TestCategories(t *testing.T) {
	snap := NewSnapshot(fixture(), "test")
	assert.Equal(t, []model.CategoryCount{
		{Category: model.CategoryCafe, Count: 3},
		{Category: model.CategoryDessert, Count: 1},
	}, snap.Categories())
	assert.Empty(t, Empty().Categories())
}

func TestInfo(t *testing.T) {
	snap := NewSnapshot(fixture(), "feed.csv")
	info := snap.Info()
	assert.Equal(t, "feed.csv", info.Source)
	assert.Equal(t, 4, info.Size)
	assert.NotEmpty(t, info.Version)
	assert.NotEqual(t, info.Version, NewSnapshot(fixture(), "feed.csv").Version())
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder(nil)
	assert.False(t, h.Loaded())
	assert.Equal(t, 0, h.Load().Len())

	first := NewSnapshot(fixture(), "one")
	old := h.Swap(first)
	assert.Equal(t, 0, old.Len())
	assert.True(t, h.Loaded())
	assert.Same(t, first, h.Load())

	assert.True(t, NewHolder(first).Loaded())
}

func TestHolderConcurrentReaders(t *testing.T) {
	a := NewSnapshot(fixture(), "a")
	b := NewSnapshot(fixture()[:1], "b")
	h := NewHolder(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s := h.Load()
				// a reader sees one whole snapshot
				if s.Source() == "a" {
					assert.Equal(t, 4, s.Len())
				} else {
					assert.Equal(t, 1, s.Len())
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		h.Swap(b)
		h.Swap(a)
	}
	wg.Wait()
}

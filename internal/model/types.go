package model

// Core domain types shared by ingestion, the catalog snapshot, the planner and the API.

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Hours is the opening-hours payload parsed from a "open~close" source string.
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close,omitempty"`
}

// Store is a catalog entry. Records are immutable once ingested.
type Store struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Hours    *Hours  `json:"hours,omitempty"`
}

// Point returns the store coordinates.
func (s Store) Point() GeoPoint { return GeoPoint{Lat: s.Lat, Lng: s.Lng} }

type Waypoint struct {
	Category string `json:"category"`
}

type PlanRequest struct {
	Start     *GeoPoint  `json:"start"`
	Waypoints []Waypoint `json:"waypoints"`
}

type PlanResult struct {
	Start           GeoPoint   `json:"start"`
	Stops           []Store    `json:"stops"`
	Path            []GeoPoint `json:"path"`
	TotalDistanceKm float64    `json:"totalDistanceKm"`
	Reused          int        `json:"reused"`
}

// Constraints are static hints attached to a parsed intent. The planner does not enforce them.
type Constraints struct {
	CrowdPreference   string  `json:"crowdPreference"` // low, any
	Timing            string  `json:"timing"`          // now
	MaxWalkDistanceKm float64 `json:"maxWalkDistanceKm"`
}

type Intent struct {
	Waypoints   []Waypoint  `json:"waypoints"`
	Start       GeoPoint    `json:"start"`
	Constraints Constraints `json:"constraints"`
}

// IntentRequest is the free-text input for intent parsing.
type IntentRequest struct {
	Text  string    `json:"text,omitempty"`
	Start *GeoPoint `json:"start,omitempty"`
}

// CatalogInfo describes the snapshot currently being served.
type CatalogInfo struct {
	Version  string `json:"version"`
	Source   string `json:"source"`
	Size     int    `json:"size"`
	LoadedAt string `json:"loadedAt"`
}

// CategoryCount is one row of the category listing.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Normalized category tags produced by ingestion and referenced by intent parsing.
const (
	CategoryCafe      = "Cafe"
	CategoryMart      = "Mart"
	CategoryFruitShop = "FruitShop"
	CategoryDessert   = "Dessert"
)

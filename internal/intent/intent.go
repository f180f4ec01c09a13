// Package intent turns free-text shopping requests into a waypoint list.
package intent

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"itinerary/internal/model"
)

// DefaultStart is used when the caller gives no location.
var DefaultStart = model.GeoPoint{Lat: 37.58, Lng: 127.04}

// DefaultConstraints are attached to every parsed intent. Nothing enforces them yet.
var DefaultConstraints = model.Constraints{
	CrowdPreference:   "low",
	Timing:            "now",
	MaxWalkDistanceKm: 1.5,
}

type termRule struct {
	term     string
	category string
}

// Every matching term adds one waypoint, in table order. Matching is case-sensitive.
var termRules = []termRule{
	{"카페", model.CategoryCafe},
	{"커피", model.CategoryCafe},
	{"cafe", model.CategoryCafe},
	{"coffee", model.CategoryCafe},
	{"마트", model.CategoryMart},
	{"장보기", model.CategoryMart},
	{"mart", model.CategoryMart},
	{"grocery", model.CategoryMart},
	{"과일", model.CategoryFruitShop},
	{"청과", model.CategoryFruitShop},
	{"fruit", model.CategoryFruitShop},
	{"디저트", model.CategoryDessert},
	{"빵", model.CategoryDessert},
	{"케이크", model.CategoryDessert},
	{"dessert", model.CategoryDessert},
	{"bakery", model.CategoryDessert},
}

func defaultWaypoints() []model.Waypoint {
	return []model.Waypoint{{Category: model.CategoryCafe}, {Category: model.CategoryDessert}}
}

// Parse never returns an empty waypoint list.
func Parse(text string, start *model.GeoPoint) model.Intent {
	t := strings.TrimSpace(norm.NFC.String(text))
	var wps []model.Waypoint
	for _, r := range termRules {
		if strings.Contains(t, r.term) {
			wps = append(wps, model.Waypoint{Category: r.category})
		}
	}
	if len(wps) == 0 {
		wps = defaultWaypoints()
	}
	s := DefaultStart
	if start != nil {
		s = *start
	}
	return model.Intent{Waypoints: wps, Start: s, Constraints: DefaultConstraints}
}

// PlanRequest converts a parsed intent into planner input.
func PlanRequest(in model.Intent) model.PlanRequest {
	start := in.Start
	wps := make([]model.Waypoint, len(in.Waypoints))
	copy(wps, in.Waypoints)
	return model.PlanRequest{Start: &start, Waypoints: wps}
}

package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"itinerary/internal/model"
)

const (
	maxWaypoints   = 50
	maxSearchLimit = 200
	maxIntentText  = 2000
)

type searchQuery struct {
	Category string
	Origin   model.GeoPoint
	Limit    int
}

func parseSearchQuery(v url.Values) (searchQuery, error) {
	q := searchQuery{Category: strings.TrimSpace(v.Get("category"))}
	lat, err := parseCoordParam(v, "lat", 90)
	if err != nil {
		return q, err
	}
	lng, err := parseCoordParam(v, "lng", 180)
	if err != nil {
		return q, err
	}
	q.Origin = model.GeoPoint{Lat: lat, Lng: lng}
	if s := strings.TrimSpace(v.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("limit must be an integer")
		}
		if n > maxSearchLimit {
			n = maxSearchLimit
		}
		q.Limit = n
	}
	return q, nil
}

func parseCoordParam(v url.Values, name string, bound float64) (float64, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if math.Abs(f) > bound {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return f, nil
}

func validatePoint(p *model.GeoPoint, field string) error {
	if math.Abs(p.Lat) > 90 {
		return fmt.Errorf("%s.lat out of range", field)
	}
	if math.Abs(p.Lng) > 180 {
		return fmt.Errorf("%s.lng out of range", field)
	}
	return nil
}

func validatePlanRequest(req *model.PlanRequest) error {
	if req.Start == nil {
		return fmt.Errorf("start is required")
	}
	if err := validatePoint(req.Start, "start"); err != nil {
		return err
	}
	if len(req.Waypoints) > maxWaypoints {
		return fmt.Errorf("at most %d waypoints allowed", maxWaypoints)
	}
	return nil
}

func validateIntentRequest(req *model.IntentRequest) error {
	if len([]rune(req.Text)) > maxIntentText {
		return fmt.Errorf("text longer than %d characters", maxIntentText)
	}
	if req.Start != nil {
		return validatePoint(req.Start, "start")
	}
	return nil
}

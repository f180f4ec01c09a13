// Package opt resolves category waypoints into a concrete walking itinerary.
package opt

import (
	"errors"

	"itinerary/internal/catalog"
	"itinerary/internal/metrics"
	"itinerary/internal/model"
)

var ErrMissingStart = errors.New("start location is required")

// Ranker returns the stores of a category ordered by distance from origin, ties by id.
// *catalog.Snapshot implements it.
type Ranker interface {
	Ranked(category string, origin model.GeoPoint) []catalog.Hit
}

// Plan chains the waypoints greedily: each one takes the nearest not-yet-visited store of
// its category from the current position. When every store of the category is already in
// the plan the nearest one is taken again and counted in Reused. Categories match exactly,
// without trimming or case folding, and one with no stores is skipped. The result depends
// only on the snapshot and the request.
func Plan(r Ranker, req model.PlanRequest) (model.PlanResult, error) {
	if req.Start == nil {
		return model.PlanResult{}, ErrMissingStart
	}
	cur := *req.Start
	res := model.PlanResult{
		Start: cur,
		Stops: []model.Store{},
		Path:  []model.GeoPoint{cur},
	}
	visited := map[int]bool{}
	skipped := 0

	for _, wp := range req.Waypoints {
		cands := r.Ranked(wp.Category, cur)
		if len(cands) == 0 {
			skipped++
			continue
		}
		pick, reused := cands[0], true
		for _, c := range cands {
			if !visited[c.ID] {
				pick, reused = c, false
				break
			}
		}
		if reused {
			res.Reused++
		}
		visited[pick.ID] = true
		res.Stops = append(res.Stops, pick.Store)
		cur = pick.Point()
		res.Path = append(res.Path, cur)
	}
	res.TotalDistanceKm = PathLengthKm(res.Path)

	metrics.PlanStops.Observe(float64(len(res.Stops)))
	metrics.PlanReusedStops.Add(float64(res.Reused))
	metrics.PlanSkippedWaypoints.Add(float64(skipped))
	return res, nil
}

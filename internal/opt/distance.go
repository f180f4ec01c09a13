package opt

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"itinerary/internal/model"
)

const earthRadiusKm = 6371.0088

// PathLengthKm is the great-circle length of path. It is reported to callers only;
// store selection ranks on planar degrees.
func PathLengthKm(path []model.GeoPoint) float64 {
	var total s1.Angle
	for i := 1; i < len(path); i++ {
		a := s2.LatLngFromDegrees(path[i-1].Lat, path[i-1].Lng)
		b := s2.LatLngFromDegrees(path[i].Lat, path[i].Lng)
		total += a.Distance(b)
	}
	return total.Radians() * earthRadiusKm
}

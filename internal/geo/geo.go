// Package geo provides great-circle distance and proximity ranking for
// camps. Distances are always computed fresh against the caller's reference
// point; the snapshot distance stored on a request is taken once at
// submission and never touched again.
package geo

import (
	"math"
	"sort"

	"github.com/lifelink/bloodcamp/internal/model"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// UnknownDistance is the sentinel distance for camps without coordinates.
// It sorts them after every camp with a real position.
const UnknownDistance = 999.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance between two points in
// kilometers using the Haversine formula.
func Distance(a, b Point) float64 {
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180)*math.Cos(b.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// RankedCamp pairs a camp with its distance from the reference point.
type RankedCamp struct {
	model.Camp
	Distance float64 `json:"distance"`
}

// Rank annotates each camp with its distance from ref and sorts nearest
// first. Camps without coordinates get UnknownDistance and end up last,
// keeping their relative order.
func Rank(camps []model.Camp, ref Point) []RankedCamp {
	ranked := make([]RankedCamp, 0, len(camps))
	for _, c := range camps {
		d := UnknownDistance
		if c.HasCoordinates() {
			d = Distance(ref, Point{Latitude: *c.Latitude, Longitude: *c.Longitude})
		}
		ranked = append(ranked, RankedCamp{Camp: c, Distance: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	return ranked
}

package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink/bloodcamp/internal/model"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Latitude: 28.6139, Longitude: 77.2090}
	assert.Zero(t, Distance(p, p))
}

func TestDistanceSymmetric(t *testing.T) {
	a := Point{Latitude: 28.6139, Longitude: 77.2090}
	b := Point{Latitude: 19.0760, Longitude: 72.8777}
	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestDistanceDelhiMumbai(t *testing.T) {
	delhi := Point{Latitude: 28.6139, Longitude: 77.2090}
	mumbai := Point{Latitude: 19.0760, Longitude: 72.8777}
	assert.InDelta(t, 1153, Distance(delhi, mumbai), 10)
}

func TestDistanceIsGreatCircleNotEuclidean(t *testing.T) {
	// From (40,0) both targets are "one degree" away on paper, but a degree
	// of longitude at latitude 40 spans far fewer kilometers than a degree
	// of latitude.
	ref := Point{Latitude: 40, Longitude: 0}
	east := Distance(ref, Point{Latitude: 40, Longitude: 1})
	north := Distance(ref, Point{Latitude: 41, Longitude: 0})

	assert.InDelta(t, 85, east, 2)
	assert.InDelta(t, 111, north, 2)
	assert.Less(t, east, north)
}

func campAt(id string, lat, lon float64) model.Camp {
	return model.Camp{ID: id, Latitude: &lat, Longitude: &lon}
}

func TestRankSortsNearestFirst(t *testing.T) {
	ref := Point{Latitude: 40, Longitude: 0}
	camps := []model.Camp{
		campAt("north", 41, 0),
		campAt("east", 40, 1),
		campAt("here", 40, 0),
	}

	ranked := Rank(camps, ref)
	require.Len(t, ranked, 3)

	assert.Equal(t, "here", ranked[0].ID)
	assert.Equal(t, "east", ranked[1].ID)
	assert.Equal(t, "north", ranked[2].ID)

	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].Distance, ranked[i].Distance)
	}
}

func TestRankCampsWithoutCoordinatesSortLast(t *testing.T) {
	ref := Point{Latitude: 40, Longitude: 0}
	camps := []model.Camp{
		{ID: "nowhere-a"},
		campAt("near", 40.1, 0),
		{ID: "nowhere-b"},
	}

	ranked := Rank(camps, ref)
	require.Len(t, ranked, 3)

	assert.Equal(t, "near", ranked[0].ID)
	assert.Equal(t, UnknownDistance, ranked[1].Distance)
	assert.Equal(t, UnknownDistance, ranked[2].Distance)

	// Ties keep their input order.
	assert.Equal(t, "nowhere-a", ranked[1].ID)
	assert.Equal(t, "nowhere-b", ranked[2].ID)
}

func TestRankEmpty(t *testing.T) {
	ranked := Rank(nil, Point{})
	assert.Empty(t, ranked)
}

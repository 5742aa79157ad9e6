package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicwatch/internal/station"
	id "civicwatch/pkg/domain"
)

func makeStation(name string, lat, lon float64) *station.Station {
	return &station.Station{
		ID:        id.NewStationID(),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func TestNearest(t *testing.T) {
	t.Run("returns closest of two stations", func(t *testing.T) {
		a := makeStation("A", 0, 0)
		b := makeStation("B", 10, 10)

		match, ok := Nearest(Coordinate{Latitude: 0.001, Longitude: 0.001}, []*station.Station{a, b})
		require.True(t, ok)
		assert.Equal(t, a.ID, match.Station.ID)
		// Haversine on a 0.001 degree diagonal near the equator.
		assert.InDelta(t, 0.157, match.DistanceKm, 0.001)
	})

	t.Run("no candidates returns not ok", func(t *testing.T) {
		_, ok := Nearest(Coordinate{Latitude: 1, Longitude: 1}, nil)
		assert.False(t, ok)
	})

	t.Run("tie keeps first-encountered candidate", func(t *testing.T) {
		first := makeStation("first", 1, 0)
		second := makeStation("second", -1, 0)

		match, ok := Nearest(Coordinate{Latitude: 0, Longitude: 0}, []*station.Station{first, second})
		require.True(t, ok)
		assert.Equal(t, first.ID, match.Station.ID)
	})

	t.Run("single candidate always matches", func(t *testing.T) {
		only := makeStation("only", 45, 45)
		match, ok := Nearest(Coordinate{Latitude: -45, Longitude: -45}, []*station.Station{only})
		require.True(t, ok)
		assert.Equal(t, only.ID, match.Station.ID)
		assert.Greater(t, match.DistanceKm, 0.0)
	})
}

func TestDistanceKm(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.InDelta(t, 0, DistanceKm(51.5, -0.12, 51.5, -0.12), 1e-9)
	})

	t.Run("one degree of latitude is about 111 km", func(t *testing.T) {
		assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.1)
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := DistanceKm(40.71, -74.0, 34.05, -118.24)
		d2 := DistanceKm(34.05, -118.24, 40.71, -74.0)
		assert.InDelta(t, d1, d2, 1e-9)
	})
}

package geo

import (
	"testing"

	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestHaversineSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(59.33, 18.06, 59.33, 18.06))
}

func TestDistanceMetersKnownPair(t *testing.T) {
	// Stockholm Centralstation to Gamla stan, a little under a kilometre.
	a := models.Coordinate{Latitude: 59.3303, Longitude: 18.0586}
	b := models.Coordinate{Latitude: 59.3251, Longitude: 18.0711}
	assert.InDelta(t, 950, DistanceMeters(a, b), 100)
}

func TestDistanceMetersSymmetric(t *testing.T) {
	a := models.Coordinate{Latitude: 57.7089, Longitude: 11.9746}
	b := models.Coordinate{Latitude: 55.6050, Longitude: 13.0038}
	assert.Equal(t, DistanceMeters(a, b), DistanceMeters(b, a))
}

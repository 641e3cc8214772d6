package geo

import (
	"math"

	"github.com/richxcame/scooter-ride/pkg/models"
)

const earthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in metres between two
// coordinates. The result is rounded to one decimal place.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(earthRadiusMeters*c*10) / 10
}

// DistanceMeters is Haversine over two coordinates.
func DistanceMeters(a, b models.Coordinate) float64 {
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

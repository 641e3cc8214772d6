package models

import "time"

// Zone rule types known to the client. The set is open: servers may send others.
const (
	ZoneTypeNoGo      = "no-go"
	ZoneTypeSlowSpeed = "slow-speed"
	ZoneTypeParking   = "parking"
	ZoneTypeCharging  = "charging"
	ZoneTypeNormal    = "normal"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// ZoneRuleMatch is the single rule in force at a location.
type ZoneRuleMatch struct {
	Type          string   `json:"type"`
	Priority      int      `json:"priority"`
	Message       string   `json:"message,omitempty"`
	SpeedLimitKmh *float64 `json:"speed_limit_kmh,omitempty"`
}

// ParkingHint points the rider at the nearest parking zone.
type ParkingHint struct {
	ID             string     `json:"id"`
	Name           string     `json:"name,omitempty"`
	Priority       *int       `json:"priority,omitempty"`
	DistanceMeters *float64   `json:"distance_meters,omitempty"`
	Coordinate     Coordinate `json:"coordinate"`
}

// ZoneCheckResult is the atomic unit returned per location check.
type ZoneCheckResult struct {
	Rule           *ZoneRuleMatch `json:"rule"`
	NearestParking *ParkingHint   `json:"nearest_parking"`
	CheckedAt      time.Time      `json:"checked_at"`
}

// PolygonZone is a map-display zone. Each ring is a closed or open list of
// coordinates; several rings make a multi-polygon.
type PolygonZone struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Name     string                 `json:"name,omitempty"`
	Priority int                    `json:"priority"`
	Rings    [][]Coordinate         `json:"rings"`
	Rules    map[string]interface{} `json:"rules,omitempty"`
}

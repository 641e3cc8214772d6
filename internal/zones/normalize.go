package zones

import (
	"errors"
	"fmt"
	"strings"

	"github.com/richxcame/scooter-ride/internal/payload"
	"github.com/richxcame/scooter-ride/pkg/geo"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/models"
	"go.uber.org/zap"
)

// Alternative field names, in precedence order.
var (
	ruleKeys         = []string{"rule", "zoneRule"}
	ruleTypeKeys     = []string{"type", "ruleType", "zoneType"}
	ruleMessageKeys  = []string{"message", "description"}
	speedLimitKeys   = []string{"speedLimitKmh", "speedLimit", "maxSpeedKmh"}
	parkingKeys      = []string{"nearestParking", "nearest_parking", "parking"}
	resultKeys       = []string{"rule", "zoneRule", "nearestParking", "nearest_parking", "parking"}
	parkingIDKeys    = []string{"id", "zoneId", "_id"}
	parkingDistKeys  = []string{"distanceMeters", "distance"}
	coordinateShapes = [][2]string{
		{"coordinate.latitude", "coordinate.longitude"},
		{"coordinate.lat", "coordinate.lng"},
		{"location.lat", "location.lng"},
		{"location.latitude", "location.longitude"},
		{"latitude", "longitude"},
		{"lat", "lng"},
	}
)

// DecodeCheckResult normalizes a /zones/check body. query is the coordinate
// that was checked; it fills in a missing parking distance.
func DecodeCheckResult(body []byte, query models.Coordinate) (*models.ZoneCheckResult, error) {
	raw, err := payload.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode zone check: %w", err)
	}
	obj, ok := payload.Object(raw)
	if !ok {
		return nil, errors.New("zone check body is not an object")
	}
	obj = unwrapData(obj)

	rule, err := normalizeRule(obj)
	if err != nil {
		return nil, err
	}

	result := &models.ZoneCheckResult{Rule: rule}

	if v, _, ok := payload.First(obj, parkingKeys...); ok {
		hint, err := normalizeParking(v, query)
		if err != nil {
			logger.Warn("ignoring malformed parking hint", zap.Error(err))
		} else {
			result.NearestParking = hint
		}
	}

	return result, nil
}

func unwrapData(obj map[string]interface{}) map[string]interface{} {
	if _, _, ok := payload.First(obj, resultKeys...); ok {
		return obj
	}
	if data, ok := payload.Object(obj["data"]); ok {
		return data
	}
	return obj
}

// normalizeRule accepts {rule: {type, priority, ...}} or a bare type string
// with priority, message and speed limit as siblings of rule.
func normalizeRule(obj map[string]interface{}) (*models.ZoneRuleMatch, error) {
	v, _, ok := payload.First(obj, ruleKeys...)
	if !ok {
		return nil, nil
	}

	fields := obj
	var ruleType string
	switch t := v.(type) {
	case string:
		ruleType = strings.TrimSpace(t)
		if ruleType == "" {
			return nil, nil
		}
	case map[string]interface{}:
		fields = t
		tv, _, ok := payload.First(t, ruleTypeKeys...)
		if !ok {
			return nil, errors.New("zone rule has no type")
		}
		s, ok := payload.String(tv)
		if !ok {
			return nil, errors.New("zone rule type is not a string")
		}
		ruleType = s
	default:
		return nil, fmt.Errorf("unsupported zone rule shape %T", v)
	}

	rule := &models.ZoneRuleMatch{Type: strings.ToLower(ruleType)}
	if pv, ok := payload.Lookup(fields, "priority"); ok {
		if p, ok := payload.Int(pv); ok {
			rule.Priority = p
		}
	}
	if mv, _, ok := payload.First(fields, ruleMessageKeys...); ok {
		if m, ok := payload.String(mv); ok {
			rule.Message = m
		}
	}
	if rule.Type == models.ZoneTypeSlowSpeed {
		if sv, _, ok := payload.First(fields, speedLimitKeys...); ok {
			if s, ok := payload.Float(sv); ok && s >= 0 {
				rule.SpeedLimitKmh = &s
			}
		}
	}
	return rule, nil
}

func normalizeParking(v interface{}, query models.Coordinate) (*models.ParkingHint, error) {
	obj, ok := payload.Object(v)
	if !ok {
		return nil, fmt.Errorf("parking hint is %T, want object", v)
	}

	idv, _, ok := payload.First(obj, parkingIDKeys...)
	if !ok {
		return nil, errors.New("parking hint has no id")
	}
	id, ok := payload.String(idv)
	if !ok {
		return nil, errors.New("parking hint id is empty")
	}

	coord, ok := parkingCoordinate(obj)
	if !ok {
		return nil, fmt.Errorf("parking hint %s has no coordinate", id)
	}

	hint := &models.ParkingHint{ID: id, Coordinate: coord}
	if nv, ok := payload.Lookup(obj, "name"); ok {
		if name, ok := payload.String(nv); ok {
			hint.Name = name
		}
	}
	if pv, ok := payload.Lookup(obj, "priority"); ok {
		if p, ok := payload.Int(pv); ok {
			hint.Priority = &p
		}
	}

	distance := geo.DistanceMeters(query, coord)
	if dv, _, ok := payload.First(obj, parkingDistKeys...); ok {
		if d, ok := payload.Float(dv); ok {
			distance = d
		}
	}
	if distance < 0 {
		distance = 0
	}
	hint.DistanceMeters = &distance

	return hint, nil
}

func parkingCoordinate(obj map[string]interface{}) (models.Coordinate, bool) {
	for _, shape := range coordinateShapes {
		latV, ok := payload.Lookup(obj, shape[0])
		if !ok {
			continue
		}
		lngV, ok := payload.Lookup(obj, shape[1])
		if !ok {
			continue
		}
		lat, okLat := payload.Float(latV)
		lng, okLng := payload.Float(lngV)
		if okLat && okLng {
			return models.Coordinate{Latitude: lat, Longitude: lng}, true
		}
	}
	return models.Coordinate{}, false
}

package ridehistory

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/richxcame/scooter-ride/internal/payload"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/validation"
)

// Normalize maps one backend history record onto a Ride. Fields are located
// through the extraction tables; absent optional fields take zero values,
// while present but unparseable ones make the whole record malformed.
func Normalize(raw map[string]interface{}) (*models.Ride, error) {
	if raw == nil {
		return nil, malformed("record is not an object", nil)
	}
	ride, _, err := normalize(raw, nil)
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// StopRecord is a stop response read against the ride being stopped.
type StopRecord struct {
	Ride *models.Ride
	// CostKnown and DurationKnown report whether the response carried the
	// figure at all; an absent cost is not a free ride.
	CostKnown     bool
	DurationKnown bool
}

// NormalizeStop reads a stop response leniently: identity fields the body
// omits are taken from active, and an end time is only kept when the body
// sent one. A body with no cost, duration, status or end time yields nil.
func NormalizeStop(raw map[string]interface{}, active *models.Ride) (*StopRecord, error) {
	if raw == nil {
		return nil, nil
	}
	ride, seen, err := normalize(raw, active)
	if err != nil {
		return nil, err
	}
	if !seen.cost && !seen.duration && !seen.status && !seen.end {
		return nil, nil
	}
	if !seen.end {
		ride.EndTime = nil
	}
	return &StopRecord{Ride: ride, CostKnown: seen.cost, DurationKnown: seen.duration}, nil
}

// present records which optional fields a record carried.
type present struct {
	cost, duration, status, end bool
}

// normalize fills identity fields missing from raw from defaults when given;
// without defaults a record needs its own id and scooter id.
func normalize(raw map[string]interface{}, defaults *models.Ride) (*models.Ride, present, error) {
	var seen present
	ride := &models.Ride{}

	id, ok := stringField(raw, idRules)
	if !ok {
		if defaults == nil || defaults.ID == "" {
			return nil, seen, malformed("record has no id", nil)
		}
		id = defaults.ID
	}
	ride.ID = id

	scooterID, ok := stringField(raw, scooterRules)
	if !ok {
		if defaults == nil || defaults.ScooterID == "" {
			return nil, seen, malformed("record has no scooter id", nil)
		}
		scooterID = defaults.ScooterID
	}
	ride.ScooterID = scooterID

	ride.UserID, _ = stringField(raw, userRules)
	if ride.UserID == "" && defaults != nil {
		ride.UserID = defaults.UserID
	}

	if v, _, ok := startRules.first(raw); ok {
		start, err := parseTime(v)
		if err != nil {
			return nil, seen, malformed("invalid start time", err)
		}
		ride.StartTime = start
	} else if defaults != nil {
		ride.StartTime = defaults.StartTime
	}

	if v, _, ok := endRules.first(raw); ok {
		end, err := parseTime(v)
		if err != nil {
			return nil, seen, malformed("invalid end time", err)
		}
		ride.EndTime = &end
		seen.end = true
	}

	if v, _, ok := costRules.first(raw); ok {
		cost, err := amountValue(v)
		if err != nil {
			return nil, seen, malformed("invalid cost", err)
		}
		if err := validation.ValidateAmount(cost); err != nil {
			return nil, seen, malformed("invalid cost", err)
		}
		ride.Cost = math.Round(cost*100) / 100
		seen.cost = true
	}

	if v, rule, ok := durationRules.first(raw); ok {
		seconds, err := durationValue(v, rule)
		if err != nil {
			return nil, seen, malformed("invalid duration", err)
		}
		if err := validation.ValidateDuration(seconds); err != nil {
			return nil, seen, malformed("invalid duration", err)
		}
		ride.DurationSeconds = seconds
		seen.duration = true
	}

	_, _, seen.status = statusRules.first(raw)
	ride.Status = resolveStatus(raw, ride.EndTime != nil)

	// Keep "active exactly when EndTime is nil" true whatever the backend
	// said. An end is only derived from a known start.
	if ride.Status == models.RideStatusActive {
		ride.EndTime = nil
	} else if ride.EndTime == nil && !ride.StartTime.IsZero() {
		end := ride.StartTime.Add(time.Duration(ride.DurationSeconds) * time.Second)
		ride.EndTime = &end
	}

	if !seen.duration && ride.EndTime != nil && !ride.StartTime.IsZero() {
		if d := ride.EndTime.Sub(ride.StartTime); d > 0 {
			ride.DurationSeconds = int(d / time.Second)
		}
	}

	return ride, seen, nil
}

// resolveStatus takes an explicit known status, otherwise infers it from the
// presence of an end time.
func resolveStatus(raw map[string]interface{}, ended bool) models.RideStatus {
	if v, _, ok := statusRules.first(raw); ok {
		if s, ok := payload.String(v); ok {
			if status, ok := models.ParseRideStatus(s); ok {
				return status
			}
		}
	}
	if ended {
		return models.RideStatusCompleted
	}
	return models.RideStatusActive
}

func stringField(raw map[string]interface{}, rules fieldRules) (string, bool) {
	for _, r := range rules {
		v, ok := payload.Lookup(raw, r.path)
		if !ok {
			continue
		}
		if s, ok := payload.String(v); ok {
			return s, true
		}
	}
	return "", false
}

// amountValue accepts numbers, formatted strings and {amount|value} objects.
func amountValue(v interface{}) (float64, error) {
	if obj, ok := payload.Object(v); ok {
		inner, _, found := payload.First(obj, "amount", "value")
		if !found {
			return 0, errors.New("amount object has no amount")
		}
		v = inner
	}
	if f, ok := payload.Float(v); ok {
		return f, nil
	}
	if s, ok := v.(string); ok {
		return ParseAmount(s)
	}
	return 0, fmt.Errorf("unsupported amount %T", v)
}

func durationValue(v interface{}, rule fieldRule) (int, error) {
	if f, ok := payload.Float(v); ok {
		return int(math.Round(f * rule.factor())), nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unsupported duration %T", v)
	}
	// Formatted strings carry their own unit, whatever the field name says.
	return ParseDurationSeconds(s)
}

func malformed(msg string, cause error) error {
	return common.NewMalformedRecordError(msg, cause)
}

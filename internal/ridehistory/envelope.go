package ridehistory

import (
	"github.com/richxcame/scooter-ride/internal/payload"
	"github.com/richxcame/scooter-ride/pkg/models"
)

// envelopes lists the response shapes a history list may arrive in, tried
// in order. A top-level "items" key is deliberately absent.
var envelopes = []string{
	"trips",
	"rides",
	"history",
	"data",
	"data.trips",
	"data.rides",
	"data.history",
	"data.items",
	"results",
}

// Decode extracts and normalizes the ride list from a history body. Records
// that fail normalization are skipped and listed in the report; an
// unrecognized body yields an empty list.
func Decode(body []byte) ([]models.Ride, Report) {
	var report Report

	doc, err := payload.Decode(body)
	if err != nil {
		return []models.Ride{}, report
	}

	records, name, ok := unwrap(doc)
	if !ok {
		return []models.Ride{}, report
	}
	report.Envelope = name
	report.Recognized = true

	rides := make([]models.Ride, 0, len(records))
	for i, rec := range records {
		obj, ok := payload.Object(rec)
		if !ok {
			report.Skipped = append(report.Skipped, SkippedRecord{Index: i, Reason: "record is not an object"})
			continue
		}
		ride, err := Normalize(obj)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRecord{Index: i, Reason: err.Error()})
			continue
		}
		rides = append(rides, *ride)
	}
	return rides, report
}

func unwrap(doc interface{}) ([]interface{}, string, bool) {
	if list, ok := payload.Array(doc); ok {
		return list, "array", true
	}
	obj, ok := payload.Object(doc)
	if !ok {
		return nil, "", false
	}
	for _, path := range envelopes {
		v, found := payload.Lookup(obj, path)
		if !found {
			continue
		}
		if list, ok := payload.Array(v); ok {
			return list, path, true
		}
	}
	return nil, "", false
}

package ridehistory

import "github.com/richxcame/scooter-ride/pkg/models"

// Filter narrows a history request.
type Filter struct {
	Status models.RideStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// SkippedRecord describes a record that could not be normalized.
type SkippedRecord struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Report explains how a history body was decoded.
type Report struct {
	// Envelope names the shape that matched, e.g. "array" or "data.trips".
	Envelope   string          `json:"envelope,omitempty"`
	Recognized bool            `json:"recognized"`
	Skipped    []SkippedRecord `json:"skipped,omitempty"`
}

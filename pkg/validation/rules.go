package validation

import "fmt"

// HistoryQuery is the filter accepted by the history endpoint.
type HistoryQuery struct {
	Status string `json:"status" validate:"omitempty,ride_status"`
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// ValidateAmount validates a monetary amount reported by the backend
func ValidateAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("amount cannot be negative: %f", amount)
	}
	return nil
}

// ValidateDuration validates a ride duration in seconds
func ValidateDuration(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("duration cannot be negative: %d", seconds)
	}
	return nil
}

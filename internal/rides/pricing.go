package rides

import (
	"math"

	"github.com/richxcame/scooter-ride/pkg/config"
)

// Pricing is the tariff used for the running cost estimate. The backend's
// figure at ride end always wins.
type Pricing struct {
	UnlockFee     float64 `json:"unlock_fee"`
	PerMinuteRate float64 `json:"per_minute_rate"`
	Currency      string  `json:"currency"`
}

// DefaultPricing returns the standard tariff.
func DefaultPricing() Pricing {
	return Pricing{
		UnlockFee:     config.DefaultUnlockFee,
		PerMinuteRate: config.DefaultPerMinuteRate,
		Currency:      config.DefaultCurrency,
	}
}

// PricingFromConfig builds a tariff from configuration.
func PricingFromConfig(cfg config.PricingConfig) Pricing {
	return Pricing{
		UnlockFee:     cfg.UnlockFee,
		PerMinuteRate: cfg.PerMinuteRate,
		Currency:      cfg.Currency,
	}
}

// BilledMinutes rounds a duration up to whole minutes.
func BilledMinutes(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	return (durationSeconds + 59) / 60
}

// Cost is the unlock fee plus every started minute at the per-minute rate,
// rounded to cents. Negative durations count as zero.
func (p Pricing) Cost(durationSeconds int) float64 {
	cost := p.UnlockFee + float64(BilledMinutes(durationSeconds))*p.PerMinuteRate
	if cost < 0 {
		cost = 0
	}
	return math.Round(cost*100) / 100
}

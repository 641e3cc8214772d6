package rides

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostBillsEveryStartedMinute(t *testing.T) {
	p := DefaultPricing()

	tests := []struct {
		seconds int
		want    float64
	}{
		{0, 10},
		{1, 12.5},
		{60, 12.5},
		{61, 15},
		{65, 15},
		{1800, 85},
		{-30, 10},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, p.Cost(tt.seconds), 1e-9, "seconds=%d", tt.seconds)
	}
}

func TestCostIsMonotonicAndAtLeastUnlockFee(t *testing.T) {
	p := Pricing{UnlockFee: 7.5, PerMinuteRate: 1.99, Currency: "EUR"}

	prev := p.Cost(0)
	for d := 0; d <= 4*3600; d++ {
		cost := p.Cost(d)
		assert.GreaterOrEqual(t, cost, p.UnlockFee)
		if cost < prev {
			t.Fatalf("cost decreased at %ds: %v < %v", d, cost, prev)
		}
		prev = cost
	}
}

func TestCostNeverNegative(t *testing.T) {
	p := Pricing{UnlockFee: -20, PerMinuteRate: 1}
	assert.Equal(t, 0.0, p.Cost(60))
}

func TestBilledMinutes(t *testing.T) {
	assert.Equal(t, 0, BilledMinutes(0))
	assert.Equal(t, 1, BilledMinutes(59))
	assert.Equal(t, 2, BilledMinutes(65))
	assert.Equal(t, 30, BilledMinutes(1800))
}

package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeatPrice(t *testing.T) {
	tests := []struct {
		name     string
		base     int64
		seatType *SeatType
		price    int64
		rate     float64
	}{
		{"no seat type", 100000, nil, 100000, 1},
		{"vip surcharge", 100000, &SeatType{Code: "VIP", SurchargeRate: 1.5}, 150000, 1.5},
		{"rounds half up", 85000, &SeatType{Code: "COUPLE", SurchargeRate: 1.15}, 97750, 1.15},
		{"zero rate falls back to base", 90000, &SeatType{Code: "BROKEN"}, 90000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, rate := SeatPrice(tt.base, tt.seatType)
			assert.Equal(t, tt.price, price)
			assert.Equal(t, tt.rate, rate)
		})
	}
}

func TestShowtimeHasStarted(t *testing.T) {
	start := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	showtime := &Showtime{StartTime: start}

	assert.False(t, showtime.HasStarted(start.Add(-time.Second)))
	assert.True(t, showtime.HasStarted(start))
	assert.True(t, showtime.HasStarted(start.Add(time.Minute)))
}

package constants

import (
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis keys and TTL values for the cineticket application
// Pattern: cineticket:{module}:{operation}:{identifier}

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "cineticket"
)

// ================== HOLDS MODULE ==================

// Seat hold keys: + showtime-id:seat-id, value is the holder id
const (
	HOLD_KEY_PREFIX = CACHE_PREFIX + ":hold:"
)

// ================== ORDERS MODULE ==================

// Seat map cache keys
const (
	CACHE_KEY_BOOKED_SEATS = CACHE_PREFIX + ":seats:booked:showtime:" // + showtime-id
)

// Seat map cache TTLs
const (
	TTL_BOOKED_SEATS = 30 * time.Second
)

// ================== RATE LIMIT MODULE ==================

const (
	RATE_LIMIT_KEY_PREFIX = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

// ================== HELPER FUNCTIONS ==================

// BuildHoldKey returns the key of a single (showtime, seat) hold
func BuildHoldKey(showtimeID, seatID string) string {
	return HOLD_KEY_PREFIX + showtimeID + ":" + seatID
}

// BuildBookedSeatsKey returns the seat map cache key of a showtime
func BuildBookedSeatsKey(showtimeID string) string {
	return CACHE_KEY_BOOKED_SEATS + showtimeID
}

// BuildRateLimitKey returns the sliding window key of a client and limit type
func BuildRateLimitKey(clientIP, limitType string) string {
	return RATE_LIMIT_KEY_PREFIX + clientIP + ":" + limitType
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAreValid(t *testing.T) {
	cfg := Load()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Minute, cfg.Redis.SeatHoldTTL)
	assert.Equal(t, 15*time.Minute, cfg.Booking.TicketOrderWindow)
	assert.Equal(t, 30*time.Minute, cfg.Booking.ProductOrderWindow)
	assert.Equal(t, 30*time.Minute, cfg.Booking.TicketGracePeriod)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ORDER_TICKET_WINDOW", "5m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Booking.TicketOrderWindow)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("REDIS_SEAT_HOLD_TTL", "ten minutes")
	t.Setenv("REDIS_DB", "x")

	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.Redis.SeatHoldTTL)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Run("zero order window", func(t *testing.T) {
		cfg := Load()
		cfg.Booking.TicketOrderWindow = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("kafka enabled without topic", func(t *testing.T) {
		cfg := Load()
		cfg.Kafka.Enabled = true
		cfg.Kafka.Topic = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("short jwt secret", func(t *testing.T) {
		cfg := Load()
		cfg.JWT.Secret = "short"
		assert.Error(t, cfg.Validate())
	})
}

package holds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua script for all-or-nothing seat holding. Either every seat is written
// under the holder or nothing is.
//
// KEYS    = hold keys of the requested seats
// ARGV[1] = holder id
// ARGV[2] = ttl in milliseconds
// returns {1, 0} on success, {0, index of the first conflicting key}
var holdScript = redis.NewScript(`
local holder = ARGV[1]
local ttl = tonumber(ARGV[2])

for i, key in ipairs(KEYS) do
    local current = redis.call("GET", key)
    if current and current ~= holder then
        return {0, i}
    end
end

for _, key in ipairs(KEYS) do
    redis.call("SET", key, holder, "PX", ttl)
end

return {1, 0}
`)

// Lua script that deletes only the keys still owned by the holder
//
// KEYS    = hold keys
// ARGV[1] = holder id
// returns the number of released keys
var releaseOwnedScript = redis.NewScript(`
local released = 0
for _, key in ipairs(KEYS) do
    if redis.call("GET", key) == ARGV[1] then
        redis.call("DEL", key)
        released = released + 1
    end
end
return released
`)

// HoldResult is the outcome of a hold attempt
type HoldResult struct {
	Granted        bool
	ConflictSeatID uuid.UUID
	ExpiresAt      time.Time
}

// Manager keeps advisory, TTL-bound seat holds in Redis. A missing or expired
// key reads as free; there is no sweep.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a hold manager with the fixed hold window
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the hold window
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// PreloadScripts loads the Lua scripts so the first hold does not pay for EVAL
func (m *Manager) PreloadScripts(ctx context.Context) error {
	if err := holdScript.Load(ctx, m.redis).Err(); err != nil {
		return fmt.Errorf("failed to load hold script: %w", err)
	}
	if err := releaseOwnedScript.Load(ctx, m.redis).Err(); err != nil {
		return fmt.Errorf("failed to load release script: %w", err)
	}
	return nil
}

// Hold holds every seat for holderID or none of them. Seats already held by
// the same holder are refreshed.
func (m *Manager) Hold(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, holderID string) (bool, error) {
	result, err := m.HoldDetailed(ctx, showtimeID, seatIDs, holderID)
	if err != nil {
		return false, err
	}
	return result.Granted, nil
}

// HoldDetailed is Hold, also reporting the first conflicting seat and the
// expiry of a granted hold.
func (m *Manager) HoldDetailed(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, holderID string) (*HoldResult, error) {
	if holderID == "" {
		return nil, apperr.Validation("holder id is required")
	}
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return nil, apperr.Validation("at least one seat is required")
	}

	now := m.now()
	values, err := holdScript.Run(ctx, m.redis, holdKeys(showtimeID, seatIDs), holderID, m.ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to execute seat hold script: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected result format from hold script")
	}

	granted, _ := values[0].(int64)
	if granted == 1 {
		return &HoldResult{Granted: true, ExpiresAt: now.Add(m.ttl)}, nil
	}

	index, _ := values[1].(int64)
	if index < 1 || int(index) > len(seatIDs) {
		return nil, fmt.Errorf("hold script returned invalid conflict index %d", index)
	}
	return &HoldResult{ConflictSeatID: seatIDs[index-1]}, nil
}

// Release deletes the holds regardless of holder. Missing keys are fine.
func (m *Manager) Release(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) error {
	if len(seatIDs) == 0 {
		return nil
	}
	if err := m.redis.Del(ctx, holdKeys(showtimeID, seatIDs)...).Err(); err != nil {
		return fmt.Errorf("failed to release seat holds: %w", err)
	}
	return nil
}

// ReleaseOwned deletes only the holds still owned by holderID
func (m *Manager) ReleaseOwned(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, holderID string) (int, error) {
	if len(seatIDs) == 0 || holderID == "" {
		return 0, nil
	}
	released, err := releaseOwnedScript.Run(ctx, m.redis, holdKeys(showtimeID, seatIDs), holderID).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to release owned seat holds: %w", err)
	}
	return released, nil
}

// IsHeld returns the current holder of a seat
func (m *Manager) IsHeld(ctx context.Context, showtimeID, seatID uuid.UUID) (string, bool, error) {
	holder, err := m.redis.Get(ctx, constants.BuildHoldKey(showtimeID.String(), seatID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read seat hold: %w", err)
	}
	return holder, true, nil
}

// GetHeld returns the holder of every held seat among seatIDs
func (m *Manager) GetHeld(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	held := make(map[uuid.UUID]string)
	if len(seatIDs) == 0 {
		return held, nil
	}

	values, err := m.redis.MGet(ctx, holdKeys(showtimeID, seatIDs)...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat holds: %w", err)
	}
	for i, value := range values {
		if holder, ok := value.(string); ok && holder != "" {
			held[seatIDs[i]] = holder
		}
	}
	return held, nil
}

func holdKeys(showtimeID uuid.UUID, seatIDs []uuid.UUID) []string {
	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = constants.BuildHoldKey(showtimeID.String(), seatID.String())
	}
	return keys
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Package reporter publishes the latest driver position for dispatcher views.
package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-tracking-service/internal/domain"
)

// RedisReporter keeps one key per session holding the most recent fix. Keys
// expire so a dropped session disappears from the live view on its own.
type RedisReporter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReporter(client *redis.Client, ttl time.Duration) (*RedisReporter, error) {
	if client == nil {
		return nil, errors.New("redis reporter: client is nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisReporter{client: client, ttl: ttl}, nil
}

type positionRecord struct {
	SessionID string  `json:"session_id"`
	VehicleID string  `json:"vehicle_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	At        string  `json:"at"`
}

func positionKey(sessionID string) string {
	return "tracking:position:" + sessionID
}

// Report overwrites the session's live position.
func (r *RedisReporter) Report(ctx context.Context, sessionID, vehicleID string, sample domain.LocationSample) error {
	record := positionRecord{
		SessionID: sessionID,
		VehicleID: vehicleID,
		Latitude:  sample.Coordinate.Latitude,
		Longitude: sample.Coordinate.Longitude,
		At:        sample.Timestamp.UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("report position: marshal: %w", err)
	}

	if err := r.client.Set(ctx, positionKey(sessionID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("report position session=%q: %w", sessionID, err)
	}

	return nil
}

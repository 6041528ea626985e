package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/redis/go-redis/v9"
)

const (
	FleetChannel = "fleet:thermal"
	stateTTL     = 5 * time.Minute
)

// Mirror writes the state of every vehicle to a hash and publishes the whole
// snapshot on FleetChannel.
type Mirror struct {
	client *redis.Client
}

func NewMirror(ctx context.Context, addr, password string) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Mirror{client: client}, nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

func (m *Mirror) PublishFleet(ctx context.Context, items []domain.FleetItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet snapshot: %w", err)
	}

	pipe := m.client.Pipeline()

	for _, item := range items {
		key := VehicleStateKey(item.ID)
		pipe.HSet(ctx, key, vehicleState(item))
		pipe.Expire(ctx, key, stateTTL)
	}
	pipe.Publish(ctx, FleetChannel, payload)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	return nil
}

func VehicleStateKey(id int64) string {
	return fmt.Sprintf("vehicle:%d:thermal", id)
}

func vehicleState(item domain.FleetItem) map[string]any {
	state := map[string]any{
		"vehicle_id": item.ID,
		"label":      item.Label,
		"last_seen":  item.LastSeen.Unix(),
		"door":       item.Door,
		"setpoint":   item.Setpoint,
		"temp_c":     "",
		"alarm_tier": "",
		"range":      "",
	}

	if item.TempC != nil {
		state["temp_c"] = *item.TempC
		state["alarm_tier"] = string(domain.Classify(*item.TempC))
		state["range"] = string(domain.RangeStatusOf(*item.TempC))
	}

	return state
}

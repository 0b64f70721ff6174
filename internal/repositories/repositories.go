// package repositories provides persistence layer implementations for the grid state.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// Durable keys.
const (
	KeyUserToken     = "twitchUserToken"
	KeyUserData      = "twitchUserData"
	KeyStreamEntries = "streamEntries"
)

// LoadJSON decodes the value stored under key into v.
//
// Returns found=false with a nil error when the key is absent.
func LoadJSON(ctx context.Context, store models.KeyValueStore, key string, v any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, shared.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, store models.KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Set(ctx, key, string(data))
}

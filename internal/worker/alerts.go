package worker

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/oliklab/mledger-sub000/internal/dto"

	"github.com/redis/go-redis/v9"
)

const alertKeyPrefix = "lowstock:"

// AlertStore keeps the latest low-stock alert per material in a Redis hash
// per user (field = material id). Newer alerts overwrite older ones.
type AlertStore struct {
	rdb *redis.Client
}

func NewAlertStore(rdb *redis.Client) *AlertStore {
	return &AlertStore{rdb: rdb}
}

func alertKey(userID string) string { return alertKeyPrefix + userID }

func (s *AlertStore) Record(ctx context.Context, p LowStockPayload, at time.Time) error {
	alert := dto.LowStockAlert{
		MaterialID:       p.MaterialID,
		Name:             p.Name,
		CurrentStock:     p.CurrentStock,
		MinimumThreshold: p.MinimumThreshold,
		RaisedAt:         at.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, alertKey(p.UserID), p.MaterialID, data).Err()
}

// List returns the user's alerts, most recent first.
func (s *AlertStore) List(ctx context.Context, userID string) ([]dto.LowStockAlert, error) {
	fields, err := s.rdb.HGetAll(ctx, alertKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockAlert, 0, len(fields))
	for _, raw := range fields {
		var a dto.LowStockAlert
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RaisedAt != out[j].RaisedAt {
			return out[i].RaisedAt > out[j].RaisedAt
		}
		return out[i].MaterialID < out[j].MaterialID
	})
	return out, nil
}

func (s *AlertStore) Dismiss(ctx context.Context, userID, materialID string) error {
	return s.rdb.HDel(ctx, alertKey(userID), materialID).Err()
}

package worker

// lowstock_worker.go
// Processes low-stock jobs from QueueLowStock.
// Records the alert in the per-user Redis hash read by GET /v1/inventory/alerts.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oliklab/mledger-sub000/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LowStockPayload is the job envelope sent to QueueLowStock.
type LowStockPayload struct {
	UserID           string          `json:"user_id"`
	MaterialID       string          `json:"material_id"`
	Name             string          `json:"name"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
}

var errInvalidPayload = errors.New("invalid low stock payload")

// decodeLowStock parses and checks a payload; it never touches Redis.
func decodeLowStock(raw json.RawMessage) (LowStockPayload, error) {
	var p LowStockPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if p.UserID == "" || p.MaterialID == "" {
		return p, fmt.Errorf("%w: user_id and material_id are required", errInvalidPayload)
	}
	return p, nil
}

// LowStockWorker stores alerts raised after ledger commits.
type LowStockWorker struct {
	alerts      *AlertStore
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

func NewLowStockWorker(alerts *AlertStore) *LowStockWorker {
	return &LowStockWorker{alerts: alerts, maxAttempts: 3, backoff: time.Second, now: time.Now}
}

// Process records one alert, retrying Redis failures. It returns the number
// of attempts made and the final error, if any; invalid payloads are not
// retried.
func (w *LowStockWorker) Process(ctx context.Context, raw json.RawMessage) (int, error) {
	p, err := decodeLowStock(raw)
	if err != nil {
		log.Error().Err(err).Msg("lowstock_worker: invalid payload")
		return 1, err
	}

	attempts, err := withRetry(ctx, w.maxAttempts, w.backoff, func(attempt int) error {
		return w.alerts.Record(ctx, p, w.now())
	})
	if err != nil {
		log.Error().Err(err).Str("material_id", p.MaterialID).Int("attempts", attempts).
			Msg("lowstock_worker: failed to record alert")
		return attempts, err
	}

	metrics.LowStockAlerts.Inc()
	log.Info().
		Str("user_id", p.UserID).
		Str("material_id", p.MaterialID).
		Str("current_stock", p.CurrentStock.String()).
		Str("minimum_threshold", p.MinimumThreshold.String()).
		Msg("lowstock_worker: material below threshold")
	return attempts, nil
}

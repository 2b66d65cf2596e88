package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLowStock(t *testing.T) {
	p, err := decodeLowStock(json.RawMessage(`{"user_id":"u1","material_id":"m1","name":"flour","current_stock":"2.5","minimum_threshold":"10"}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MaterialID)
	assert.Equal(t, "2.5", p.CurrentStock.String())

	_, err = decodeLowStock(json.RawMessage(`{"user_id":"u1"}`))
	assert.ErrorIs(t, err, errInvalidPayload)

	_, err = decodeLowStock(json.RawMessage(`not json`))
	assert.ErrorIs(t, err, errInvalidPayload)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	n, err := withRetry(context.Background(), 3, time.Millisecond, func(int) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	boom := errors.New("down")
	n, err = withRetry(context.Background(), 3, time.Millisecond, func(int) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = withRetry(ctx, 3, time.Hour, func(int) error { return boom })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_NilIsAnError(t *testing.T) {
	var d *Dispatcher
	assert.Error(t, d.EnqueueLowStock(context.Background(), LowStockPayload{UserID: "u", MaterialID: "m"}))
}

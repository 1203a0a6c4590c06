package consumers

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/optimization"
	"kairos/pkg/errors"
)

func newRequestConsumer() *OptimizationRequestConsumer {
	return NewOptimizationRequestConsumer(nil, nil, nil, nil, "binance", 500, time.Minute)
}

func TestOptimizationRequestConsumer_RejectsMalformedPayload(t *testing.T) {
	rc := newRequestConsumer()

	err := rc.handleMessage(context.Background(), kafkago.Message{
		Topic: "optimization.requested",
		Value: []byte(`{not json`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal optimization request")
}

func TestOptimizationRequestConsumer_RejectsIncompleteRequest(t *testing.T) {
	rc := newRequestConsumer()

	for _, payload := range []string{
		`{"timeframe":"1h","trials":50}`,
		`{"symbol":"BTCUSDT","trials":50}`,
		`{}`,
	} {
		err := rc.handleMessage(context.Background(), kafkago.Message{Value: []byte(payload)})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	}
}

func TestOptimizationRequestMode(t *testing.T) {
	assert.Equal(t, optimization.ModeSimple, optimizationRequestMode("simple"))
	assert.Equal(t, optimization.ModeLegacy, optimizationRequestMode("legacy"))
	assert.Equal(t, optimization.ModeJSON, optimizationRequestMode("json"))

	// Unknown wire values fall back to auto-detection
	assert.Equal(t, optimization.Mode(""), optimizationRequestMode("garbage"))
	assert.Equal(t, optimization.Mode(""), optimizationRequestMode(""))
}

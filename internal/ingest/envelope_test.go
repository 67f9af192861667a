package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

func wireMessage(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	body := map[string]any{
		"event_id":     uuid.NewString(),
		"user_id":      uuid.NewString(),
		"event_type":   "view",
		"item_label":   "$AAPL",
		"dimension_id": "creator-1",
		"occurred_at":  time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
	for key, value := range overrides {
		if value == nil {
			delete(body, key)
			continue
		}
		body[key] = value
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return data
}

func TestDecodeEnvelopeValid(t *testing.T) {
	envelope, err := DecodeEnvelope(wireMessage(t, map[string]any{
		"attributes": map[string]any{"premium": true, "surface": "feed"},
	}))
	require.NoError(t, err)

	assert.Equal(t, enums.EventView, envelope.EventType)
	assert.Equal(t, "$AAPL", envelope.ItemLabel)
	assert.Equal(t, "creator-1", envelope.DimensionID)
	assert.Equal(t, time.UTC, envelope.OccurredAt.Location())
	assert.JSONEq(t, `{"premium":true,"surface":"feed"}`, string(envelope.Attributes))
}

func TestDecodeEnvelopeMissingAttributesDefaultsToEmpty(t *testing.T) {
	envelope, err := DecodeEnvelope(wireMessage(t, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(envelope.Attributes))
}

func TestDecodeEnvelopeRejectsMissingFields(t *testing.T) {
	_, err := DecodeEnvelope(wireMessage(t, map[string]any{"item_label": nil}))
	assert.Error(t, err)

	_, err = DecodeEnvelope(wireMessage(t, map[string]any{"user_id": "not-a-uuid"}))
	assert.Error(t, err)
}

func TestDecodeEnvelopeRejectsUnknownEventType(t *testing.T) {
	_, err := DecodeEnvelope(wireMessage(t, map[string]any{"event_type": "teleport"}))
	assert.Error(t, err)
}

func TestDecodeEnvelopeValidatesAttributeSchemaPerType(t *testing.T) {
	// portfolio_open requires portfolio_id
	_, err := DecodeEnvelope(wireMessage(t, map[string]any{
		"event_type": "portfolio_open",
		"attributes": map[string]any{},
	}))
	assert.Error(t, err)

	_, err = DecodeEnvelope(wireMessage(t, map[string]any{
		"event_type": "portfolio_open",
		"attributes": map[string]any{"portfolio_id": "pf-9"},
	}))
	assert.NoError(t, err)
}

func TestDecodeEnvelopeRejectsUnknownAttributeFields(t *testing.T) {
	_, err := DecodeEnvelope(wireMessage(t, map[string]any{
		"attributes": map[string]any{"premium": true, "color": "red"},
	}))
	assert.Error(t, err)
}

func TestDecodeEnvelopeSubscribeRequiresPlan(t *testing.T) {
	_, err := DecodeEnvelope(wireMessage(t, map[string]any{
		"event_type": "subscribe",
	}))
	assert.Error(t, err)

	_, err = DecodeEnvelope(wireMessage(t, map[string]any{
		"event_type": "subscribe",
		"attributes": map[string]any{"plan_id": "monthly", "renewal": false},
	}))
	assert.NoError(t, err)
}

func TestDecodeEnvelopeMalformedJSON(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)
}

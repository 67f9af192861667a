package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Envelope is a fully validated interaction event ready for the handler.
type Envelope struct {
	EventID     uuid.UUID
	UserID      uuid.UUID
	EventType   enums.EventType
	ItemLabel   string
	DimensionID string
	OccurredAt  time.Time
	Attributes  json.RawMessage
}

type envelopeWire struct {
	EventID     string          `json:"event_id" validate:"required,uuid"`
	UserID      string          `json:"user_id" validate:"required,uuid"`
	EventType   string          `json:"event_type" validate:"required"`
	ItemLabel   string          `json:"item_label" validate:"required"`
	DimensionID string          `json:"dimension_id"`
	OccurredAt  time.Time       `json:"occurred_at" validate:"required"`
	Attributes  json.RawMessage `json:"attributes"`
}

// DecodeEnvelope parses and validates one wire message. The attribute payload
// is validated against the schema of the declared event type, so a message
// that decodes without error is safe to hand to the pipeline.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := validate.Struct(wire); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}

	eventType, err := enums.ParseEventType(wire.EventType)
	if err != nil {
		return nil, err
	}

	attributes, err := validateAttributes(eventType, wire.Attributes)
	if err != nil {
		return nil, fmt.Errorf("attributes for %s: %w", eventType, err)
	}

	eventID, err := uuid.Parse(wire.EventID)
	if err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}
	userID, err := uuid.Parse(wire.UserID)
	if err != nil {
		return nil, fmt.Errorf("user_id: %w", err)
	}

	return &Envelope{
		EventID:     eventID,
		UserID:      userID,
		EventType:   eventType,
		ItemLabel:   strings.TrimSpace(wire.ItemLabel),
		DimensionID: strings.TrimSpace(wire.DimensionID),
		OccurredAt:  wire.OccurredAt.UTC(),
		Attributes:  attributes,
	}, nil
}

// validateAttributes decodes the tagged attribute payload into the schema for
// the event type and runs its validation tags. Absent attributes are treated
// as an empty object so event types without required fields stay optional.
func validateAttributes(eventType enums.EventType, raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	dest := attributesFor(eventType)
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return nil, err
	}
	if err := validate.Struct(dest); err != nil {
		return nil, err
	}
	return raw, nil
}

package enums

import "fmt"

// EventType is the canonical event_type for raw interaction events.
type EventType string

const (
	EventView          EventType = "view"
	EventTap           EventType = "tap"
	EventCopy          EventType = "copy"
	EventSubscribe     EventType = "subscribe"
	EventProfileVisit  EventType = "profile_visit"
	EventPortfolioOpen EventType = "portfolio_open"
	EventFundingLinked EventType = "funding_linked"
)

var validEventTypes = []EventType{
	EventView,
	EventTap,
	EventCopy,
	EventSubscribe,
	EventProfileVisit,
	EventPortfolioOpen,
	EventFundingLinked,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts the raw string to EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

package journeys

import (
	"time"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

// InteractionItem is the normalized unit of a user's pre-conversion timeline.
// Every source event type collapses into one of these at the extractor
// boundary, so the miner never sees event-type-specific fields.
type InteractionItem struct {
	Kind      enums.ItemKind
	Label     string
	Timestamp time.Time
}

func normalizeEvent(event models.RawEvent) InteractionItem {
	return InteractionItem{
		Kind:      enums.KindForEvent(event.EventType),
		Label:     event.ItemLabel,
		Timestamp: event.OccurredAt.UTC(),
	}
}

// collapseConsecutive keeps the first of any run of adjacent items with the
// same label. A user refreshing the same screen repeatedly counts as one
// visit; without this, path statistics drown in refresh noise.
func collapseConsecutive(items []InteractionItem) []InteractionItem {
	if len(items) == 0 {
		return nil
	}
	out := items[:1]
	for _, item := range items[1:] {
		if item.Label == out[len(out)-1].Label {
			continue
		}
		out = append(out, item)
	}
	return out
}

// lastN returns the trailing n items, preserving order.
func lastN(items []InteractionItem, n int) []InteractionItem {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

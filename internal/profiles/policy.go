package profiles

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

// MergePolicy is the rule used when folding a batch aggregate into a stored
// profile counter. The policy per field is a design-time contract: sum is only
// safe because consumed events are evicted with the same transaction, sticky
// booleans never unlatch, and rolling-window counters are replaced because the
// upstream batch always carries a full window total.
type MergePolicy string

const (
	PolicySum     MergePolicy = "sum"
	PolicySticky  MergePolicy = "sticky"
	PolicyReplace MergePolicy = "replace"
)

// CounterPolicies documents the merge rule for every profile field. Kept next
// to the apply logic so a policy change is reviewed as a schema decision.
var CounterPolicies = map[string]MergePolicy{
	"view_count_7d":         PolicyReplace,
	"tap_count_7d":          PolicyReplace,
	"premium_view_count_7d": PolicyReplace,
	"copy_count_total":      PolicySum,
	"subscribe_count_total": PolicySum,
	"session_count_total":   PolicySum,
	"has_linked_funding":    PolicySticky,
	"has_copied_portfolio":  PolicySticky,
}

// Delta is the per-user aggregate computed from one chunk of raw events.
type Delta struct {
	Views        int
	Taps         int
	PremiumViews int
	Copies       int
	Subscribes   int
	Sessions     int

	LinkedFunding   bool
	CopiedPortfolio bool

	FirstEventAt time.Time
	LastEventAt  time.Time
}

// BuildDeltas groups a chunk of events by user and computes each user's
// per-field aggregate. Event order within the chunk does not matter here;
// only the timestamps are folded into first/last seen.
func BuildDeltas(events []models.RawEvent) map[uuid.UUID]*Delta {
	deltas := make(map[uuid.UUID]*Delta)
	for _, event := range events {
		delta, ok := deltas[event.UserID]
		if !ok {
			delta = &Delta{}
			deltas[event.UserID] = delta
		}

		switch event.EventType {
		case enums.EventView:
			delta.Views++
			if isPremium(event.Metadata) {
				delta.PremiumViews++
			}
		case enums.EventTap:
			delta.Taps++
		case enums.EventCopy:
			delta.Copies++
			delta.CopiedPortfolio = true
		case enums.EventSubscribe:
			delta.Subscribes++
		case enums.EventFundingLinked:
			delta.LinkedFunding = true
		case enums.EventProfileVisit, enums.EventPortfolioOpen:
			delta.Sessions++
		}

		occurred := event.OccurredAt.UTC()
		if delta.FirstEventAt.IsZero() || occurred.Before(delta.FirstEventAt) {
			delta.FirstEventAt = occurred
		}
		if occurred.After(delta.LastEventAt) {
			delta.LastEventAt = occurred
		}
	}
	return deltas
}

func isPremium(metadata json.RawMessage) bool {
	if len(metadata) == 0 {
		return false
	}
	var attrs struct {
		Premium bool `json:"premium"`
	}
	if err := json.Unmarshal(metadata, &attrs); err != nil {
		return false
	}
	return attrs.Premium
}

// applyDelta folds one user's chunk aggregate into their stored profile.
// firstTouch marks the first chunk of the current run that saw this user: a
// replace counter supersedes the stored value on first touch, then
// accumulates across the remaining chunks of the same run so a window total
// split over chunk boundaries is not lost.
func applyDelta(profile *models.UserProfile, delta *Delta, firstTouch bool) {
	if firstTouch {
		profile.ViewCount7d = delta.Views
		profile.TapCount7d = delta.Taps
		profile.PremiumViewCount7d = delta.PremiumViews
	} else {
		profile.ViewCount7d += delta.Views
		profile.TapCount7d += delta.Taps
		profile.PremiumViewCount7d += delta.PremiumViews
	}

	profile.CopyCountTotal += delta.Copies
	profile.SubscribeCountTotal += delta.Subscribes
	profile.SessionCountTotal += delta.Sessions

	profile.HasLinkedFunding = profile.HasLinkedFunding || delta.LinkedFunding
	profile.HasCopiedPortfolio = profile.HasCopiedPortfolio || delta.CopiedPortfolio

	if profile.FirstSeenAt.IsZero() || delta.FirstEventAt.Before(profile.FirstSeenAt) {
		profile.FirstSeenAt = delta.FirstEventAt
	}
	if delta.LastEventAt.After(profile.LastEventAt) {
		profile.LastEventAt = delta.LastEventAt
	}
}

package profiles

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

func TestBuildDeltasGroupsByUser(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	events := []models.RawEvent{
		{UserID: userA, EventType: enums.EventView, OccurredAt: base},
		{UserID: userA, EventType: enums.EventView, OccurredAt: base.Add(time.Minute), Metadata: json.RawMessage(`{"premium":true}`)},
		{UserID: userA, EventType: enums.EventCopy, OccurredAt: base.Add(2 * time.Minute)},
		{UserID: userB, EventType: enums.EventTap, OccurredAt: base},
		{UserID: userB, EventType: enums.EventFundingLinked, OccurredAt: base.Add(time.Hour)},
	}

	deltas := BuildDeltas(events)
	if len(deltas) != 2 {
		t.Fatalf("expected 2 users, got %d", len(deltas))
	}

	a := deltas[userA]
	if a.Views != 2 {
		t.Errorf("userA views = %d, want 2", a.Views)
	}
	if a.PremiumViews != 1 {
		t.Errorf("userA premium views = %d, want 1", a.PremiumViews)
	}
	if a.Copies != 1 || !a.CopiedPortfolio {
		t.Errorf("userA copies = %d copied=%v, want 1/true", a.Copies, a.CopiedPortfolio)
	}
	if !a.FirstEventAt.Equal(base) {
		t.Errorf("userA first event = %v, want %v", a.FirstEventAt, base)
	}

	b := deltas[userB]
	if b.Taps != 1 {
		t.Errorf("userB taps = %d, want 1", b.Taps)
	}
	if !b.LinkedFunding {
		t.Error("userB expected linked funding latch")
	}
	if !b.LastEventAt.Equal(base.Add(time.Hour)) {
		t.Errorf("userB last event = %v, want %v", b.LastEventAt, base.Add(time.Hour))
	}
}

func TestBuildDeltasIgnoresMalformedMetadata(t *testing.T) {
	userID := uuid.New()
	events := []models.RawEvent{
		{UserID: userID, EventType: enums.EventView, Metadata: json.RawMessage(`not-json`), OccurredAt: time.Now()},
	}

	deltas := BuildDeltas(events)
	if deltas[userID].PremiumViews != 0 {
		t.Errorf("premium views = %d, want 0", deltas[userID].PremiumViews)
	}
	if deltas[userID].Views != 1 {
		t.Errorf("views = %d, want 1", deltas[userID].Views)
	}
}

func TestApplyDeltaReplaceSupersedesOnFirstTouch(t *testing.T) {
	profile := models.UserProfile{
		ViewCount7d:    40,
		CopyCountTotal: 3,
	}
	delta := &Delta{Views: 12, Copies: 2, FirstEventAt: time.Now(), LastEventAt: time.Now()}

	applyDelta(&profile, delta, true)

	if profile.ViewCount7d != 12 {
		t.Errorf("view_count_7d = %d, want 12 (replaced)", profile.ViewCount7d)
	}
	if profile.CopyCountTotal != 5 {
		t.Errorf("copy_count_total = %d, want 5 (summed)", profile.CopyCountTotal)
	}
}

func TestApplyDeltaReplaceAccumulatesAcrossChunksOfOneRun(t *testing.T) {
	profile := models.UserProfile{ViewCount7d: 40}
	now := time.Now()

	applyDelta(&profile, &Delta{Views: 7, FirstEventAt: now, LastEventAt: now}, true)
	applyDelta(&profile, &Delta{Views: 5, FirstEventAt: now, LastEventAt: now}, false)

	if profile.ViewCount7d != 12 {
		t.Errorf("view_count_7d = %d, want 12 (7 then +5 within one run)", profile.ViewCount7d)
	}
}

func TestApplyDeltaStickyBooleanNeverUnlatches(t *testing.T) {
	profile := models.UserProfile{HasLinkedFunding: true}
	now := time.Now()

	applyDelta(&profile, &Delta{FirstEventAt: now, LastEventAt: now}, true)

	if !profile.HasLinkedFunding {
		t.Error("has_linked_funding unlatched by a batch without the event")
	}
}

func TestCounterPoliciesCoverEveryCounter(t *testing.T) {
	expected := []string{
		"view_count_7d", "tap_count_7d", "premium_view_count_7d",
		"copy_count_total", "subscribe_count_total", "session_count_total",
		"has_linked_funding", "has_copied_portfolio",
	}
	for _, field := range expected {
		if _, ok := CounterPolicies[field]; !ok {
			t.Errorf("missing policy for %s", field)
		}
	}
	if len(CounterPolicies) != len(expected) {
		t.Errorf("policy map has %d entries, want %d", len(CounterPolicies), len(expected))
	}
}

package journeys

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

func newTestMiner(t *testing.T, topK int) *Miner {
	t.Helper()
	miner, err := NewMiner(MinerParams{Logger: testLogger(), TopK: topK})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	return miner
}

func patternsOfType(patterns []models.PathPattern, analysisType enums.AnalysisType) []models.PathPattern {
	var out []models.PathPattern
	for _, pattern := range patterns {
		if pattern.AnalysisType == analysisType {
			out = append(out, pattern)
		}
	}
	return out
}

func TestMinePatternsEntryPointDeterminism(t *testing.T) {
	miner := newTestMiner(t, 10)
	sequences := map[uuid.UUID]Sequence{
		uuid.New(): {Items: []string{"A", "X"}},
		uuid.New(): {Items: []string{"A", "Y"}},
		uuid.New(): {Items: []string{"B", "Z"}},
	}

	patterns := miner.MinePatterns(sequences, Stats{TotalConverters: 3}, "", time.Now())
	entries := patternsOfType(patterns, enums.AnalysisEntryPoint)
	if len(entries) != 2 {
		t.Fatalf("entry patterns = %d, want 2", len(entries))
	}

	top := entries[0]
	if top.Items[0] != "A" || top.UserCount != 2 {
		t.Fatalf("top entry = %v count=%d, want A count=2", top.Items, top.UserCount)
	}
	if top.Percentage.StringFixed(2) != "66.67" {
		t.Errorf("top entry pct = %s, want 66.67", top.Percentage.StringFixed(2))
	}
	if top.Rank != 1 {
		t.Errorf("top entry rank = %d, want 1", top.Rank)
	}
	if entries[1].Percentage.StringFixed(2) != "33.33" {
		t.Errorf("second entry pct = %s, want 33.33", entries[1].Percentage.StringFixed(2))
	}
}

func TestMinePatternsCombinationIsOrderIndependent(t *testing.T) {
	miner := newTestMiner(t, 10)
	sequences := map[uuid.UUID]Sequence{
		uuid.New(): {Items: []string{"A", "B"}},
		uuid.New(): {Items: []string{"B", "A"}},
	}

	patterns := miner.MinePatterns(sequences, Stats{TotalConverters: 2}, "", time.Now())

	combos := patternsOfType(patterns, enums.AnalysisCombination)
	if len(combos) != 1 {
		t.Fatalf("combination buckets = %d, want 1", len(combos))
	}
	if combos[0].UserCount != 2 {
		t.Errorf("combination count = %d, want 2", combos[0].UserCount)
	}

	full := patternsOfType(patterns, enums.AnalysisFullSequence)
	if len(full) != 2 {
		t.Fatalf("full-sequence buckets = %d, want 2 (order matters)", len(full))
	}
	for _, pattern := range full {
		if pattern.UserCount != 1 {
			t.Errorf("full-sequence count = %d, want 1", pattern.UserCount)
		}
	}
}

func TestMinePatternsThreeConverterScenario(t *testing.T) {
	miner := newTestMiner(t, 10)
	sequences := map[uuid.UUID]Sequence{
		uuid.New(): {Items: []string{"$AAPL", "$BTC"}},
		uuid.New(): {Items: []string{"$BTC"}},
		uuid.New(): {Items: []string{"$AAPL", "$BTC", "$AAPL"}},
	}

	patterns := miner.MinePatterns(sequences, Stats{TotalConverters: 3}, "", time.Now())

	entries := patternsOfType(patterns, enums.AnalysisEntryPoint)
	if len(entries) != 2 {
		t.Fatalf("entry patterns = %d, want 2", len(entries))
	}
	if entries[0].Items[0] != "$AAPL" || entries[0].UserCount != 2 || entries[0].Percentage.StringFixed(2) != "66.67" {
		t.Errorf("entry top = %v count=%d pct=%s, want $AAPL 2 66.67",
			entries[0].Items, entries[0].UserCount, entries[0].Percentage.StringFixed(2))
	}
	if entries[1].Items[0] != "$BTC" || entries[1].Percentage.StringFixed(2) != "33.33" {
		t.Errorf("entry second = %v pct=%s, want $BTC 33.33", entries[1].Items, entries[1].Percentage.StringFixed(2))
	}

	// user2 has a single-item journey and is excluded from these analyses
	combos := patternsOfType(patterns, enums.AnalysisCombination)
	if len(combos) != 1 {
		t.Fatalf("combination buckets = %d, want 1", len(combos))
	}
	if combos[0].UserCount != 2 || combos[0].Percentage.StringFixed(2) != "100.00" {
		t.Errorf("combination = count %d pct %s, want 2 / 100.00 of eligible",
			combos[0].UserCount, combos[0].Percentage.StringFixed(2))
	}

	full := patternsOfType(patterns, enums.AnalysisFullSequence)
	if len(full) != 2 {
		t.Fatalf("full-sequence buckets = %d, want 2", len(full))
	}
	for _, pattern := range full {
		if pattern.UserCount != 1 {
			t.Errorf("full-sequence count = %d, want 1", pattern.UserCount)
		}
	}
}

func TestMinePatternsTieBreakIsDeterministic(t *testing.T) {
	miner := newTestMiner(t, 10)
	sequences := map[uuid.UUID]Sequence{
		uuid.New(): {Items: []string{"B", "X"}},
		uuid.New(): {Items: []string{"A", "X"}},
	}

	patterns := miner.MinePatterns(sequences, Stats{TotalConverters: 2}, "", time.Now())
	entries := patternsOfType(patterns, enums.AnalysisEntryPoint)
	if len(entries) != 2 {
		t.Fatalf("entry patterns = %d, want 2", len(entries))
	}
	if entries[0].Items[0] != "A" || entries[1].Items[0] != "B" {
		t.Errorf("tie ordering = [%s %s], want [A B]", entries[0].Items[0], entries[1].Items[0])
	}
}

func TestMinePatternsTopKLimit(t *testing.T) {
	miner := newTestMiner(t, 2)
	sequences := map[uuid.UUID]Sequence{
		uuid.New(): {Items: []string{"A", "X"}},
		uuid.New(): {Items: []string{"B", "X"}},
		uuid.New(): {Items: []string{"C", "X"}},
	}

	patterns := miner.MinePatterns(sequences, Stats{TotalConverters: 3}, "", time.Now())
	entries := patternsOfType(patterns, enums.AnalysisEntryPoint)
	if len(entries) != 2 {
		t.Fatalf("entry patterns = %d, want top 2", len(entries))
	}
}

func TestMinePatternsEmptyInputYieldsEmptyResult(t *testing.T) {
	miner := newTestMiner(t, 10)

	patterns := miner.MinePatterns(map[uuid.UUID]Sequence{}, Stats{}, "", time.Now())
	if len(patterns) != 0 {
		t.Fatalf("patterns = %d, want 0", len(patterns))
	}
}

func TestSortForDisplayUsesFixedPriority(t *testing.T) {
	patterns := []models.PathPattern{
		{AnalysisType: enums.AnalysisFullSequence, Rank: 1},
		{AnalysisType: enums.AnalysisEntryPoint, Rank: 2},
		{AnalysisType: enums.AnalysisCombination, Rank: 1},
		{AnalysisType: enums.AnalysisEntryPoint, Rank: 1},
	}

	SortForDisplay(patterns)

	want := []enums.AnalysisType{
		enums.AnalysisEntryPoint, enums.AnalysisEntryPoint,
		enums.AnalysisCombination, enums.AnalysisFullSequence,
	}
	for i, pattern := range patterns {
		if pattern.AnalysisType != want[i] {
			t.Fatalf("position %d = %s, want %s", i, pattern.AnalysisType, want[i])
		}
	}
	if patterns[0].Rank != 1 || patterns[1].Rank != 2 {
		t.Error("entries not ordered by rank within type")
	}
}

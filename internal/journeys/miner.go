package journeys

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	dbtypes "github.com/matiasvr/folioscope-analytics/pkg/db/types"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

const defaultTopK = 10

// MinerParams configure the path pattern miner.
type MinerParams struct {
	Logger *logger.Logger
	TopK   int
}

// Miner aggregates extracted sequences across the converter population into
// ranked entry-point, combination, and full-sequence statistics.
type Miner struct {
	logg *logger.Logger
	topK int
}

// NewMiner builds a pattern miner.
func NewMiner(params MinerParams) (*Miner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	topK := params.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Miner{logg: params.Logger, topK: topK}, nil
}

type patternBucket struct {
	key   string
	items []string
	count int
}

// MinePatterns computes the ranked pattern set for one dimension. Entry-point
// percentages are over all converters; combination and full-sequence
// percentages are over converters whose journey holds at least two distinct
// items, since a single-item journey carries no path information. An empty
// sequence map yields an empty result, not an error.
func (m *Miner) MinePatterns(sequences map[uuid.UUID]Sequence, stats Stats, dimensionID string, computedAt time.Time) []models.PathPattern {
	entryBuckets := map[string]*patternBucket{}
	comboBuckets := map[string]*patternBucket{}
	fullBuckets := map[string]*patternBucket{}
	eligible := 0

	for _, sequence := range sequences {
		if len(sequence.Items) == 0 {
			continue
		}

		first := sequence.Items[0]
		addToBucket(entryBuckets, first, []string{first})

		distinct := distinctItems(sequence.Items)
		if len(distinct) < 2 {
			continue
		}
		eligible++

		combo := append([]string(nil), distinct...)
		sort.Strings(combo)
		addToBucket(comboBuckets, strings.Join(combo, "\x1f"), combo)

		addToBucket(fullBuckets, strings.Join(sequence.Items, "\x1f"), sequence.Items)
	}

	patterns := make([]models.PathPattern, 0, 3*m.topK)
	patterns = append(patterns, m.rankBuckets(entryBuckets, enums.AnalysisEntryPoint, stats.TotalConverters, dimensionID, computedAt)...)
	patterns = append(patterns, m.rankBuckets(comboBuckets, enums.AnalysisCombination, eligible, dimensionID, computedAt)...)
	patterns = append(patterns, m.rankBuckets(fullBuckets, enums.AnalysisFullSequence, eligible, dimensionID, computedAt)...)
	return patterns
}

func addToBucket(buckets map[string]*patternBucket, key string, items []string) {
	bucket, ok := buckets[key]
	if !ok {
		bucket = &patternBucket{key: key, items: items}
		buckets[key] = bucket
	}
	bucket.count++
}

func distinctItems(items []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// rankBuckets orders buckets by descending count, then lexically by key so
// re-runs over identical input produce identical output, and keeps the top K.
func (m *Miner) rankBuckets(buckets map[string]*patternBucket, analysisType enums.AnalysisType, totalUsers int, dimensionID string, computedAt time.Time) []models.PathPattern {
	ordered := make([]*patternBucket, 0, len(buckets))
	for _, bucket := range buckets {
		ordered = append(ordered, bucket)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].key < ordered[j].key
	})

	if len(ordered) > m.topK {
		ordered = ordered[:m.topK]
	}

	patterns := make([]models.PathPattern, 0, len(ordered))
	for rank, bucket := range ordered {
		patterns = append(patterns, models.PathPattern{
			ID:           uuid.New(),
			DimensionID:  dimensionID,
			AnalysisType: analysisType,
			Items:        dbtypes.StringList(bucket.items),
			UserCount:    bucket.count,
			Percentage:   percentage(bucket.count, totalUsers),
			Rank:         rank + 1,
			TotalUsers:   totalUsers,
			ComputedAt:   computedAt,
		})
	}
	return patterns
}

func percentage(count, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(count) * 100).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// SortForDisplay orders a mixed pattern set by the fixed presentation
// priority of the analysis types, then by rank.
func SortForDisplay(patterns []models.PathPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].AnalysisType != patterns[j].AnalysisType {
			return patterns[i].AnalysisType.DisplayOrder() < patterns[j].AnalysisType.DisplayOrder()
		}
		return patterns[i].Rank < patterns[j].Rank
	})
}

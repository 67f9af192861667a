package export

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"

	pkgbigquery "github.com/matiasvr/folioscope-analytics/pkg/bigquery"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	dbtypes "github.com/matiasvr/folioscope-analytics/pkg/db/types"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{PatternsTable: " ", RetentionTable: "retention"}); err == nil {
		t.Fatal("expected error when patterns table missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{PatternsTable: "patterns", RetentionTable: " "}); err == nil {
		t.Fatal("expected error when retention table missing")
	}
}

func samplePattern() models.PathPattern {
	return models.PathPattern{
		DimensionID:  "creator-1",
		AnalysisType: enums.AnalysisEntryPoint,
		Items:        dbtypes.StringList{"$AAPL"},
		UserCount:    2,
		Percentage:   decimal.RequireFromString("66.67"),
		Rank:         1,
		TotalUsers:   3,
		ComputedAt:   time.Now().UTC(),
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.ExportPatterns(context.Background(), []models.PathPattern{samplePattern()}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != writer.patternsTable {
		t.Fatalf("expected patterns table on retry, got %s", fake.calls[1].table)
	}
	if len(writer.patternBuffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterDoesNotRetryPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusBadRequest},
		nil,
	}

	if err := writer.ExportPatterns(context.Background(), []models.PathPattern{samplePattern()}); err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single attempt, got %d", len(fake.calls))
	}
}

func TestWriterBatching(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.ExportPatterns(context.Background(), []models.PathPattern{samplePattern()}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert before batch full, got %d", len(fake.calls))
	}

	if err := writer.ExportPatterns(context.Background(), []models.PathPattern{samplePattern()}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single insert after batch flush, got %d", len(fake.calls))
	}
	if fake.calls[0].rowCount != 2 {
		t.Fatalf("expected two rows inserted, got %d", fake.calls[0].rowCount)
	}
}

func TestWriterFlushWritesBothBuffers(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10

	if err := writer.ExportPatterns(context.Background(), []models.PathPattern{samplePattern()}); err != nil {
		t.Fatalf("unexpected pattern export error: %v", err)
	}
	retention := models.RetentionRow{
		DimensionID:   "creator-1",
		CohortMonth:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		CohortSize:    4,
		RenewedCounts: dbtypes.IntList{4, 2, 1},
		ComputedAt:    time.Now().UTC(),
	}
	if err := writer.ExportRetention(context.Background(), []models.RetentionRow{retention}); err != nil {
		t.Fatalf("unexpected retention export error: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected one insert per table, got %d", len(fake.calls))
	}
	if fake.calls[0].table != writer.patternsTable || fake.calls[1].table != writer.retentionTable {
		t.Fatalf("unexpected table order: %+v", fake.calls)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	if isRetryableBigQueryError(errors.New("schema mismatch")) {
		t.Fatal("plain errors are not retryable")
	}
	if !isRetryableBigQueryError(&googleapi.Error{Code: http.StatusTooManyRequests}) {
		t.Fatal("rate limiting is retryable")
	}
	if isRetryableBigQueryError(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Fatal("authorization failures are not retryable")
	}
}

type insertCall struct {
	table    string
	rowCount int
}

type fakeTableInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeTableInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*Writer, *fakeTableInserter) {
	t.Helper()
	fake := &fakeTableInserter{}
	return &Writer{
		client:         fake,
		patternsTable:  "path_patterns",
		retentionTable: "retention_rows",
		batchSize:      1,
		retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	}, fake
}

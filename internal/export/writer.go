package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/matiasvr/folioscope-analytics/pkg/bigquery"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls the reporting export behavior.
type Config struct {
	PatternsTable  string
	RetentionTable string
	BatchSize      int
	RetryPolicy    RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer mirrors computed results into the BigQuery reporting tables with
// retries and optional batching. The warehouse stays the source of truth;
// a failed export never rolls back a computed run.
type Writer struct {
	client         tableInserter
	patternsTable  string
	retentionTable string
	batchSize      int
	retry          RetryPolicy

	patternBuffer   []PathPatternRow
	retentionBuffer []RetentionRow
}

// New creates a new Writer backed by a shared client.
func New(client *pkgbigquery.Client, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	patterns := strings.TrimSpace(cfg.PatternsTable)
	if patterns == "" {
		return nil, errors.New("patterns table is required")
	}
	retention := strings.TrimSpace(cfg.RetentionTable)
	if retention == "" {
		return nil, errors.New("retention table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retry := cfg.RetryPolicy
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}

	return &Writer{
		client:         client,
		patternsTable:  patterns,
		retentionTable: retention,
		batchSize:      batchSize,
		retry:          retry,
	}, nil
}

// ExportPatterns buffers the mined patterns and flushes full batches.
func (w *Writer) ExportPatterns(ctx context.Context, patterns []models.PathPattern) error {
	for _, pattern := range patterns {
		w.patternBuffer = append(w.patternBuffer, patternRow(pattern))
		if len(w.patternBuffer) >= w.batchSize {
			if err := w.flushPatterns(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportRetention buffers the cohort rows and flushes full batches.
func (w *Writer) ExportRetention(ctx context.Context, rows []models.RetentionRow) error {
	for _, row := range rows {
		w.retentionBuffer = append(w.retentionBuffer, retentionRow(row))
		if len(w.retentionBuffer) >= w.batchSize {
			if err := w.flushRetention(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes any buffered rows immediately.
func (w *Writer) Flush(ctx context.Context) error {
	if err := w.flushPatterns(ctx); err != nil {
		return err
	}
	return w.flushRetention(ctx)
}

func (w *Writer) flushPatterns(ctx context.Context) error {
	if len(w.patternBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.patternBuffer))
	for i := range w.patternBuffer {
		rows[i] = &w.patternBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.patternsTable, rows); err != nil {
		return err
	}
	w.patternBuffer = w.patternBuffer[:0]
	return nil
}

func (w *Writer) flushRetention(ctx context.Context) error {
	if len(w.retentionBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.retentionBuffer))
	for i := range w.retentionBuffer {
		rows[i] = &w.retentionBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.retentionTable, rows); err != nil {
		return err
	}
	w.retentionBuffer = w.retentionBuffer[:0]
	return nil
}

func (w *Writer) insertWithRetry(ctx context.Context, table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		timer.Stop()

		backoff = minDuration(backoff*2, w.retry.MaximumBackoff)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi *cbigquery.MultiError
	if errors.As(err, &multi) {
		if multi == nil || len(*multi) == 0 {
			return false
		}
		for _, inner := range *multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme *cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if pme == nil || len(*pme) == 0 {
			return false
		}
		for _, rowErr := range *pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var rowErr *cbigquery.RowInsertionError
	if errors.As(err, &rowErr) {
		if rowErr == nil || len(rowErr.Errors) == 0 {
			return false
		}
		for _, inner := range rowErr.Errors {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}

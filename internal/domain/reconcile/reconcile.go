// Package reconcile replaces an evaluator's rows in the shared dataset.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/pkg/logger"
	"github.com/okian/peereval/pkg/metrics"
)

// Store is the bulk dataset the reconciler reads and overwrites.
type Store interface {
	// ReadAll returns every record. An empty or uninitialized store returns no records.
	ReadAll(ctx context.Context) ([]model.EvaluationRecord, error)
	// Overwrite replaces the whole dataset with records.
	Overwrite(ctx context.Context, records []model.EvaluationRecord) error
}

// Reconciler performs read, filter, append and overwrite against a Store.
//
// There is no locking or version check. Two evaluators reconciling inside the
// same read/write window race at whole-dataset granularity: the last write
// wins and the other evaluator's new rows are lost. Closing that gap needs a
// compare-and-swap or keyed upsert in the store itself.
type Reconciler struct {
	store  Store
	logger logger.Logger
}

// New constructs a Reconciler.
func New(store Store, log logger.Logger) *Reconciler {
	return &Reconciler{store: store, logger: log}
}

// Reconcile makes newRecords the only rows authored by evaluatorID.
//
// A read that fails with ErrStoreUnauthorized or ErrDatasetCorrupt aborts the
// save before anything is written. Other read failures are treated as an empty
// dataset so a first-ever submission can succeed. A failed write leaves the
// previous dataset in place and returns an error wrapping ErrSaveFailed.
func (r *Reconciler) Reconcile(ctx context.Context, evaluatorID string, newRecords []model.EvaluationRecord) error {
	start := time.Now()
	defer func() { metrics.RecordReconcileDuration(time.Since(start)) }()

	current, err := r.store.ReadAll(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreUnauthorized) || errors.Is(err, ErrDatasetCorrupt) {
			r.logger.Error(ctx, "dataset read refused; nothing written",
				logger.String("evaluator", evaluatorID),
				logger.Error(err),
			)
			return fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
		metrics.RecordStoreReadFallback()
		r.logger.Warn(ctx, "dataset read failed; treating as empty", logger.Error(err))
		current = nil
	}

	final := Merge(current, evaluatorID, newRecords)

	if err := TranslateWriteError(r.store.Overwrite(ctx, final)); err != nil {
		r.logger.Error(ctx, "dataset overwrite failed",
			logger.String("evaluator", evaluatorID),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	metrics.UpdateDatasetRows(len(final))
	r.logger.Info(ctx, "submission reconciled",
		logger.String("evaluator", evaluatorID),
		logger.Int("replaced", len(current)+len(newRecords)-len(final)),
		logger.Int("written", len(newRecords)),
		logger.Int("rows", len(final)),
	)
	return nil
}

// Merge drops every current row authored by evaluatorID and appends newRecords.
// Kept rows retain their relative order. Ids compare as trimmed strings.
func Merge(current []model.EvaluationRecord, evaluatorID string, newRecords []model.EvaluationRecord) []model.EvaluationRecord {
	id := strings.TrimSpace(evaluatorID)
	final := make([]model.EvaluationRecord, 0, len(current)+len(newRecords))
	for _, rec := range current {
		if strings.TrimSpace(rec.EvaluatorID) != id {
			final = append(final, rec)
		}
	}
	return append(final, newRecords...)
}

// TranslateWriteError maps a store write error to the reconciler's view of it.
//
// Some transports surface a successful HTTP 200 as an error; any error whose
// message contains "200" is therefore reported as success (nil).
func TranslateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "200") {
		metrics.RecordWriteQuirk()
		return nil
	}
	return err
}

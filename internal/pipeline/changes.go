package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

const (
	publishAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 5 * time.Second
)

// changeEvents builds one event per row whose capacity or available capacity
// changed, carrying only the fields that moved.
func changeEvents(runID string, before *domain.Table, res domain.MergeResult, cols domain.ColumnMap, capMask, avMask []bool) []domain.ChangeEvent {
	capCol, avCol := cols.Get(domain.FieldCapacity), cols.Get(domain.FieldAvailable)
	var events []domain.ChangeEvent
	for i := range res.Table.Rows {
		changes := make(map[string]domain.FieldChange, 2)
		if i < len(capMask) && capMask[i] {
			changes[domain.FieldCapacity] = domain.FieldChange{Before: before.Value(i, capCol), After: res.Table.Value(i, capCol)}
		}
		if i < len(avMask) && avMask[i] {
			changes[domain.FieldAvailable] = domain.FieldChange{Before: before.Value(i, avCol), After: res.Table.Value(i, avCol)}
		}
		if len(changes) == 0 {
			continue
		}
		events = append(events, domain.NewChangeEvent(
			runID,
			domain.FormatValue(res.Table.Value(i, cols.Get(domain.FieldSubstation))),
			domain.FormatValue(res.Table.Value(i, cols.Get(domain.FieldMunicipality))),
			domain.FormatValue(res.Table.Value(i, cols.Get(domain.FieldDistrict))),
			res.Matches[i].Kind,
			changes,
		))
	}
	return events
}

// publishChanges sends the run's change events, retrying with exponential
// backoff. It is a no-op without a publisher.
func (u *Updater) publishChanges(ctx context.Context, logger *slog.Logger, runID string, before *domain.Table, res domain.MergeResult, cols domain.ColumnMap, capMask, avMask []bool, sum *Summary) error {
	if u.publisher == nil {
		return nil
	}
	events := changeEvents(runID, before, res, cols, capMask, avMask)
	if len(events) == 0 {
		return nil
	}

	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = u.publisher.Publish(ctx, events); err == nil {
			sum.Published = len(events)
			u.metrics.ChangesPublished.Add(float64(len(events)))
			logger.Info("change events published", "count", len(events))
			return nil
		}
		logger.Warn("publish change events failed", "attempt", attempt, "error", err)
		if attempt == publishAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish changes: %w", err)
}

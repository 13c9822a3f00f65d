package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wasla/internal/events"
	"wasla/internal/metrics"
	"wasla/internal/types"
)

// Service is the audit logger. Writes are best-effort: a failed append is
// reported to the log and the metric, never to the caller. A user operation
// must not block on audit-store availability.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Record appends one entry. No error return: failures go to the error sink.
func (s *Service) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := s.store.Append(ctx, &e); err != nil {
		metrics.AuditWriteFailures.Inc()
		s.log.Error("audit write failed",
			zap.String("entity", e.Entity),
			zap.String("entity_id", string(e.EntityID)),
			zap.String("action", string(e.Action)),
			zap.Error(err))
	}
}

func (s *Service) Query(ctx context.Context, f Filters, p Page) ([]Entry, error) {
	return s.store.List(ctx, f, p)
}

// RunRetentionSweep deletes rows older than maxAgeDays, oldest-first, at
// most batchSize per call. Deleting zero rows is success; re-running is safe.
func (s *Service) RunRetentionSweep(ctx context.Context, maxAgeDays, batchSize int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	return s.store.DeleteOlderThan(ctx, cutoff, batchSize)
}

// Run consumes domain events and appends one row per order transition with
// the before/after status snapshots. Returns when the channel closes.
func (s *Service) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			sc, isTransition := e.(events.OrderStatusChanged)
			if !isTransition {
				continue
			}
			s.Record(ctx, Entry{
				ActorUserID: EntryActor(sc.Actor),
				Action:      ActionUpdate,
				Entity:      "order",
				EntityID:    sc.OrderID,
				OldData:     map[string]any{"status": sc.PreviousStatus},
				NewData:     map[string]any{"status": sc.NewStatus},
				CreatedAt:   sc.At,
			})
		}
	}
}

// RunRetentionTicker sweeps on an interval until the context ends.
func (s *Service) RunRetentionTicker(ctx context.Context, interval time.Duration, maxAgeDays, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.RunRetentionSweep(ctx, maxAgeDays, batchSize)
			if err != nil {
				s.log.Error("audit retention sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.log.Info("audit retention sweep", zap.Int64("deleted", deleted))
			}
		}
	}
}

// EntryActor adapts an authenticated actor to the nullable actor column.
func EntryActor(a types.Actor) *types.ID {
	id := a.ID
	return &id
}

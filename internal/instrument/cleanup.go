package instrument

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"finance-backend/internal/store"
)

// CleanupOldEvents deletes events recorded before now minus retention.
func CleanupOldEvents(ctx context.Context, s *store.Store, retention time.Duration, now time.Time) (int64, error) {
	pb := s.Dialect.NewParamBuilder()
	cutoff := pb.Add(s.Dialect.Param(now.Add(-retention).UTC()))
	n, err := store.Exec(ctx, s.DB, s.Dialect, fmt.Sprintf("DELETE FROM %s WHERE created_at < %s", EventsTable, cutoff), pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("event cleanup: %w", err)
	}
	return n, nil
}

// RunCleanup deletes old events every interval until ctx ends.
func RunCleanup(ctx context.Context, s *store.Store, log logrus.FieldLogger, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := CleanupOldEvents(ctx, s, retention, now)
			if err != nil {
				log.WithError(err).Error("event cleanup")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Info("event cleanup")
			}
		}
	}
}

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/archon-systems/archon-core/pkg/outbox"
	"github.com/cenkalti/backoff/v5"
)

// drainOutbox polls the outbox on a fixed interval and hands every
// pending record to publish, retrying each delivery with backoff
// before giving up on that tick. A record that keeps failing stays
// pending and is retried on the next tick rather than being dropped.
func drainOutbox(ctx context.Context, store outbox.Store, publish func(context.Context, mesh.Envelope) error, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := store.Pending(ctx)
			if err != nil {
				logger.Error("outbox list pending failed", "error", err)
				continue
			}
			for _, rec := range pending {
				_, err := backoff.Retry(ctx, func() (struct{}, error) {
					return struct{}{}, publish(ctx, rec.Envelope)
				}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
				if err != nil {
					if markErr := store.MarkAttempted(ctx, rec.ID); markErr != nil {
						logger.Error("outbox mark attempted failed", "id", rec.ID, "error", markErr)
					}
					logger.Warn("outbox delivery attempt failed, will retry next tick", "id", rec.ID, "attempts", rec.Attempts+1, "error", err)
					continue
				}
				if err := store.MarkDone(ctx, rec.ID); err != nil {
					logger.Error("outbox mark done failed", "id", rec.ID, "error", err)
				}
			}
		}
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter is implemented by registries that keep expired
// entries until they are swept.
type ExpiredSessionDeleter interface {
	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunSessionSweeper calls DeleteExpired every interval until ctx is done.
func RunSessionSweeper(ctx context.Context, d ExpiredSessionDeleter, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.WarnContext(ctx, "expired session sweep failed", "error", err.Error())
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

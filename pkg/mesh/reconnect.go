package mesh

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// Dialer establishes one mesh connection attempt, succeeding once the
// connection reaches Ready.
type Dialer func(ctx context.Context) (*Connection, error)

// ReconnectWithBackoff retries dial with exponential backoff and
// jitter until it succeeds or ctx is cancelled, the pattern the
// connection lifecycle uses on disconnection.
func ReconnectWithBackoff(ctx context.Context, dial Dialer) (*Connection, error) {
	return backoff.Retry(ctx, func() (*Connection, error) {
		conn, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
}

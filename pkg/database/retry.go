package database

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry run connect up to count times, sleeping interval seconds between attempts.
// interval follows the yaml convention of whole seconds.
func withRetry(count int, interval time.Duration, connect func(attempt int) error) error {
	if count < 1 {
		count = 1
	}
	attempt := 0
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval*time.Second), uint64(count-1))
	return backoff.Retry(func() error {
		attempt++
		return connect(attempt)
	}, policy)
}

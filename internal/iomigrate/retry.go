package iomigrate

import (
	"context"
	"errors"
	"time"

	"github.com/tmforge/tmmigrate/pkg/migrate"
)

// retry calls fn up to attempts times, doubling delay after every failure.
// Permanent errors and cancellation stop it at once.
func retry(
	ctx context.Context,
	attempts int,
	delay time.Duration,
	fn func(context.Context) error,
) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, migrate.ErrPermanent) || ctx.Err() != nil {
			return err
		}
		if i == attempts-1 {
			break
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		delay *= 2
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

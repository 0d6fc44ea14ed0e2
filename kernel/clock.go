package kernel

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
)

func (k *Kernel) tick() time.Duration {
	return time.Second / time.Duration(k.cfg.TickHz)
}

// GetTime returns the ticks elapsed since the kernel was created.
func (k *Kernel) GetTime(ctx context.Context) (int64, error) {
	return int64(time.Since(k.boot) / k.tick()), nil
}

// Sleep blocks for ticks clock ticks or until the task is killed.
func (k *Kernel) Sleep(ctx context.Context, ticks uint64) (int64, error) {
	if ticks == 0 {
		return 0, nil
	}

	if ticks > uint64(math.MaxInt64/k.tick()) {
		return fail(errors.Wrapf(abi.EINVAL, "sleep of %d ticks", ticks))
	}

	d := time.Duration(ticks) * k.tick()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return 0, nil
	case <-ctx.Done():
		return fail(errors.Wrap(abi.EUNSPEC, "sleep interrupted"))
	}
}

package period

import (
	"context"
	"sync"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

// Latest delivers only the result of the most recently started call.
// Starting a call cancels the one in flight; a call that settles after a
// newer one began gets ErrSuperseded. The zero value is ready to use.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func (l *Latest) Do(
	ctx context.Context,
	fn func(ctx context.Context) (*domain.Series, error),
) (*domain.Series, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	series, err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return nil, ErrSuperseded
	}
	l.cancel = nil
	return series, err
}

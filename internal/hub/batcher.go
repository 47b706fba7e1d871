package hub

import (
	"sync"
	"time"

	"github.com/user/termdemo/internal/surface/widget"
)

// Batcher coalesces surface ops that arrive within interval of the first
// pending op into one flush. Order is preserved.
type Batcher struct {
	flushMu  sync.Mutex
	mu       sync.Mutex
	pending  []widget.Op
	interval time.Duration
	onFlush  func(ops []widget.Op)
	timer    *time.Timer
}

func NewBatcher(interval time.Duration, onFlush func([]widget.Op)) *Batcher {
	return &Batcher{
		interval: interval,
		onFlush:  onFlush,
	}
}

func (b *Batcher) Add(op widget.Op) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, op)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.Flush)
	}
}

// Flush sends whatever is pending right away.
func (b *Batcher) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	ops := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if b.onFlush != nil && len(ops) > 0 {
		b.onFlush(ops)
	}
}

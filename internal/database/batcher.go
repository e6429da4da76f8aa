package database

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// finalFlushTimeout bounds the flush that runs while closing.
const finalFlushTimeout = 5 * time.Second

// FlushFunc writes one batch. The slice is reused after it returns.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// Batcher queues records and hands them to a FlushFunc when the batch is
// full or the flush interval elapses, whichever comes first.
type Batcher[T any] struct {
	name      string
	batchSize int
	interval  time.Duration
	batchChan chan T
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
}

// NewBatcher creates a batcher. name prefixes its log lines.
func NewBatcher[T any](name string, batchSize int, interval time.Duration) *Batcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Batcher[T]{
		name:      name,
		batchSize: batchSize,
		interval:  interval,
		batchChan: make(chan T, batchSize*2),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the write loop. Only the first call has any effect.
func (b *Batcher[T]) Start(flush FlushFunc[T]) {
	b.startOnce.Do(func() {
		b.started.Store(true)
		go b.writeLoop(flush)
	})
}

// Add queues v without blocking. It reports false when the queue is full
// and v was dropped.
func (b *Batcher[T]) Add(v T) bool {
	select {
	case <-b.ctx.Done():
		return false
	default:
	}
	select {
	case b.batchChan <- v:
		return true
	default:
		log.Printf("[%s] Warning: batch channel full, dropping record", b.name)
		return false
	}
}

// Close stops the loop after flushing everything already queued. It is
// safe to call more than once.
func (b *Batcher[T]) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		if b.started.Load() {
			<-b.done
		}
	})
}

func (b *Batcher[T]) writeLoop(flush FlushFunc[T]) {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	batch := make([]T, 0, b.batchSize)
	send := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := flush(ctx, batch); err != nil {
			log.Printf("[%s] Failed to flush %d records: %v", b.name, len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-b.ctx.Done():
			// Drain what was queued before Close, then flush it
		drain:
			for {
				select {
				case v := <-b.batchChan:
					batch = append(batch, v)
					if len(batch) >= b.batchSize {
						b.finalFlush(send)
					}
				default:
					break drain
				}
			}
			b.finalFlush(send)
			return

		case v := <-b.batchChan:
			batch = append(batch, v)
			if len(batch) >= b.batchSize {
				send(b.ctx)
			}

		case <-ticker.C:
			send(b.ctx)
		}
	}
}

func (b *Batcher[T]) finalFlush(send func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	send(ctx)
}

package http

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
)

var (
	ErrFull  = errors.New("ring buffer is full")
	ErrEmpty = errors.New("ring buffer is empty")
)

// connCtx is the per-connection arena: every buffer a connection needs is
// allocated once, up front, and reused.
type connCtx struct {
	readBuf  []byte
	chunkBuf []byte
	writeBuf []byte
}

// ConnPool hands out a fixed number of connection contexts. The accept
// task waits for a free one before taking the next connection, so the pool
// bounds memory without turning anyone away.
type ConnPool struct {
	Pool  []connCtx
	Ready RingBuffer[*connCtx]

	released chan struct{}
}

func NewConnPool(size, readBufferSize, chunkSize int) *ConnPool {
	cp := &ConnPool{
		Pool:     make([]connCtx, size),
		Ready:    NewRingBuffer[*connCtx](size),
		released: make(chan struct{}, 1),
	}
	for i := range cp.Pool {
		cp.Pool[i].readBuf = make([]byte, readBufferSize)
		cp.Pool[i].chunkBuf = make([]byte, chunkSize)
		cp.Pool[i].writeBuf = make([]byte, 0, 256)
		if err := cp.Ready.Enqueue(&cp.Pool[i]); err != nil {
			panic(fmt.Sprintf("connection pool of %d: %v", size, err))
		}
	}
	return cp
}

func (cp *ConnPool) get() (*connCtx, error) {
	return cp.Ready.Dequeue()
}

// wait is get that suspends until a context is put back or ctx is done.
func (cp *ConnPool) wait(ctx context.Context) (*connCtx, error) {
	for {
		if cc, err := cp.get(); err == nil {
			return cc, nil
		}

		err := Await(ctx, func() error {
			select {
			case <-cp.released:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return nil, err
		}
	}
}

// put returns cc to the pool. ErrFull means cc was put back twice.
func (cp *ConnPool) put(cc *connCtx) error {
	cc.writeBuf = cc.writeBuf[:0]
	if err := cp.Ready.Enqueue(cc); err != nil {
		return err
	}

	select {
	case cp.released <- struct{}{}:
	default:
	}
	return nil
}

type RingBuffer[T any] struct {
	buffer []slot[T]
	mask   uint64
	enqPos uint64
	deqPos uint64
}

type slot[T any] struct {
	sequence uint64
	value    T
}

// NewRingBuffer creates a ring buffer holding at least size items; the
// capacity is rounded up to a power of two.
func NewRingBuffer[T any](size int) RingBuffer[T] {
	capacity := 1
	for capacity < size {
		capacity <<= 1
	}

	buf := make([]slot[T], capacity)
	for i := range buf {
		buf[i].sequence = uint64(i)
	}
	return RingBuffer[T]{
		buffer: buf,
		mask:   uint64(capacity - 1),
	}
}

// Enqueue adds an item to the ring buffer
func (q *RingBuffer[T]) Enqueue(val T) error {
	for {
		pos := atomic.LoadUint64(&q.enqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos)

		if delta == 0 {
			if atomic.CompareAndSwapUint64(&q.enqPos, pos, pos+1) {
				slot.value = val
				atomic.StoreUint64(&slot.sequence, pos+1)
				return nil
			}
		} else if delta < 0 {
			return ErrFull
		} else {
			runtime.Gosched()
		}
	}
}

// Dequeue removes and returns the oldest item
func (q *RingBuffer[T]) Dequeue() (T, error) {
	var zero T
	for {
		pos := atomic.LoadUint64(&q.deqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos+1)

		if delta == 0 {
			if atomic.CompareAndSwapUint64(&q.deqPos, pos, pos+1) {
				val := slot.value
				atomic.StoreUint64(&slot.sequence, pos+q.mask+1)
				return val, nil
			}
		} else if delta < 0 {
			return zero, ErrEmpty
		} else {
			runtime.Gosched()
		}
	}
}

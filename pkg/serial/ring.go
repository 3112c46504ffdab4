package serial

import (
	"fmt"
	"sync/atomic"
)

// Ring buffer sizes used by the driver and the buffered sample.
const (
	SerialBufLen = 4096
	SampleBufLen = 2048
)

// OverflowPolicy decides what a write into a full RingBuffer does.
type OverflowPolicy int

const (
	// OverflowOverwrite drops the oldest byte to make room. The write
	// succeeds silently and only Overflows tells it happened.
	OverflowOverwrite OverflowPolicy = iota
	// OverflowReject refuses the write with ErrBufferOverflow.
	OverflowReject
)

// String implements fmt.Stringer.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowOverwrite:
		return "overwrite"
	case OverflowReject:
		return "reject"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseOverflowPolicy parses the String form of a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "overwrite", "":
		return OverflowOverwrite, nil
	case "reject":
		return OverflowReject, nil
	}
	return 0, fmt.Errorf("unknown overflow policy %q", s)
}

// RingBuffer is a single-producer single-consumer byte queue.
// One slot is never used so that writeHead == readHead means empty.
//
// Only the producer moves writeHead and only the consumer moves readHead,
// except for OverflowOverwrite where the producer pushes readHead past the
// oldest byte with a compare-and-swap. Slots are accessed atomically as the
// producer may then overwrite the slot the consumer is reading; the consumer
// discards that byte when its own compare-and-swap fails.
type RingBuffer struct {
	buf       []uint32
	readHead  atomic.Uint32
	writeHead atomic.Uint32
	policy    OverflowPolicy

	overflows  atomic.Uint64
	underflows atomic.Uint64
}

// NewRingBuffer creates a RingBuffer of size slots, holding size-1 bytes.
func NewRingBuffer(size int, policy OverflowPolicy) *RingBuffer {
	if size < 2 || size > 0x10000 {
		panic(fmt.Sprintf("invalid ring buffer size %d", size))
	}
	return &RingBuffer{buf: make([]uint32, size), policy: policy}
}

// Size returns the number of slots.
func (r *RingBuffer) Size() int {
	return len(r.buf)
}

// Capacity returns the maximum number of queued bytes.
func (r *RingBuffer) Capacity() int {
	return len(r.buf) - 1
}

// Policy returns the overflow policy.
func (r *RingBuffer) Policy() OverflowPolicy {
	return r.policy
}

func (r *RingBuffer) next(pos uint32) uint32 {
	if pos++; pos >= uint32(len(r.buf)) {
		return 0
	}
	return pos
}

// Write queues a byte. Producer side only.
func (r *RingBuffer) Write(b byte) error {
	w := r.writeHead.Load()
	next := r.next(w)
	if next == r.readHead.Load() {
		r.overflows.Add(1)
		if r.policy == OverflowReject {
			return ErrBufferOverflow
		}
		// fails only if the consumer already freed the slot
		r.readHead.CompareAndSwap(next, r.next(next))
	}
	atomic.StoreUint32(&r.buf[w], uint32(b))
	r.writeHead.Store(next)
	return nil
}

// CanRead reports whether a byte is queued.
func (r *RingBuffer) CanRead() bool {
	return r.writeHead.Load() != r.readHead.Load()
}

// TryRead dequeues a byte. Consumer side only.
func (r *RingBuffer) TryRead() (byte, error) {
	for {
		rh := r.readHead.Load()
		if rh == r.writeHead.Load() {
			r.underflows.Add(1)
			return 0, ErrBufferUnderflow
		}
		b := byte(atomic.LoadUint32(&r.buf[rh]))
		if r.readHead.CompareAndSwap(rh, r.next(rh)) {
			return b, nil
		}
	}
}

// Read dequeues a byte. Reading an empty buffer returns the stale byte at
// the read cursor, so callers gate it with CanRead. Consumer side only.
func (r *RingBuffer) Read() byte {
	b, err := r.TryRead()
	if err != nil {
		return byte(atomic.LoadUint32(&r.buf[r.readHead.Load()]))
	}
	return b
}

// ReadInto dequeues up to len(p) bytes.
func (r *RingBuffer) ReadInto(p []byte) int {
	n := 0
	for ; n < len(p) && r.CanRead(); n++ {
		b, err := r.TryRead()
		if err != nil {
			break
		}
		p[n] = b
	}
	return n
}

// Available is the historical queue length formula of the driver:
// capacity-(writeHead-readHead) when not wrapped, readHead-writeHead when
// wrapped. The non-wrapped branch yields free space rather than queued
// bytes. Use Buffered for the number of queued bytes.
func (r *RingBuffer) Available() uint16 {
	w, rh := int(r.writeHead.Load()), int(r.readHead.Load())
	if w >= rh {
		return uint16(r.Capacity() - (w - rh))
	}
	return uint16(rh - w)
}

// Buffered returns the number of queued bytes.
func (r *RingBuffer) Buffered() int {
	w, rh := int(r.writeHead.Load()), int(r.readHead.Load())
	return (w - rh + len(r.buf)) % len(r.buf)
}

// Free returns the number of bytes that can be written without overflow.
func (r *RingBuffer) Free() int {
	return r.Capacity() - r.Buffered()
}

// Reset empties the buffer. Neither side may run concurrently.
func (r *RingBuffer) Reset() {
	r.readHead.Store(0)
	r.writeHead.Store(0)
}

// Overflows returns the number of writes into a full buffer.
func (r *RingBuffer) Overflows() uint64 {
	return r.overflows.Load()
}

// Underflows returns the number of reads from an empty buffer.
func (r *RingBuffer) Underflows() uint64 {
	return r.underflows.Load()
}

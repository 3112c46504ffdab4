package serial

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i>>8)
	}
	return data
}

func TestRingBufferFIFO(t *testing.T) {
	for _, size := range []int{SerialBufLen, SampleBufLen} {
		r := NewRingBuffer(size, OverflowReject)
		require.Equal(t, size-1, r.Capacity())
		for _, n := range []int{1, 17, size / 2, size - 1} {
			data := pattern(n)
			for _, b := range data {
				require.NoError(t, r.Write(b))
			}
			require.Equal(t, n, r.Buffered())
			out := make([]byte, 0, n)
			for r.CanRead() {
				out = append(out, r.Read())
			}
			require.Equal(t, data, out, "size %d, n %d", size, n)
		}
		require.Zero(t, r.Overflows())
	}
}

func TestRingBufferWraparound(t *testing.T) {
	r := NewRingBuffer(SampleBufLen, OverflowOverwrite)
	capacity := r.Capacity()
	for _, k := range []int{1, 5, capacity - 1} {
		r.Reset()
		data := pattern(capacity + k)
		for _, b := range data {
			require.NoError(t, r.Write(b))
		}
		out := make([]byte, capacity)
		require.Equal(t, capacity, r.ReadInto(out))
		require.Equal(t, data[k:], out)
		require.False(t, r.CanRead())
	}
	require.Equal(t, uint64(1+5+capacity-1), r.Overflows())
}

func TestRingBufferEmptyFull(t *testing.T) {
	r := NewRingBuffer(4, OverflowReject)
	require.False(t, r.CanRead())
	require.NoError(t, r.Write(1))
	require.True(t, r.CanRead())
	require.Equal(t, byte(1), r.Read())
	require.False(t, r.CanRead())

	require.NoError(t, r.Write(2))
	require.NoError(t, r.Write(3))
	require.NoError(t, r.Write(4))
	require.Equal(t, ErrBufferOverflow, r.Write(5))
	require.Equal(t, uint64(1), r.Overflows())
	require.Equal(t, 3, r.Buffered())
	require.Zero(t, r.Free())
	for _, expect := range []byte{2, 3, 4} {
		b, err := r.TryRead()
		require.NoError(t, err)
		require.Equal(t, expect, b)
	}
}

func TestRingBufferUnderflow(t *testing.T) {
	r := NewRingBuffer(8, OverflowReject)
	require.NoError(t, r.Write(9))
	require.Equal(t, byte(9), r.Read())

	_, err := r.TryRead()
	require.Equal(t, ErrBufferUnderflow, err)
	// stale byte, cursors untouched
	require.Equal(t, byte(0), r.Read())
	require.Equal(t, uint64(2), r.Underflows())
	require.False(t, r.CanRead())
	require.Zero(t, r.Buffered())
}

func TestRingBufferAvailableFormula(t *testing.T) {
	r := NewRingBuffer(SerialBufLen, OverflowOverwrite)
	capacity := uint16(r.Capacity())

	r.writeHead.Store(10)
	r.readHead.Store(5)
	// Available reports free space in the non-wrapped case, not the
	// 5 queued bytes.
	require.Equal(t, capacity-5, r.Available())
	require.Equal(t, 5, r.Buffered())

	r.writeHead.Store(5)
	r.readHead.Store(10)
	// wrapped: readHead-writeHead
	require.Equal(t, uint16(5), r.Available())
	require.Equal(t, SerialBufLen-5, r.Buffered())

	r.Reset()
	require.Equal(t, capacity, r.Available())
	require.Zero(t, r.Buffered())
}

func TestRingBufferConcurrent(t *testing.T) {
	r := NewRingBuffer(64, OverflowReject)
	data := pattern(10000)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, b := range data {
			for r.Write(b) == ErrBufferOverflow {
			}
		}
	}()
	out := make([]byte, 0, len(data))
	for len(out) < len(data) {
		if b, err := r.TryRead(); err == nil {
			out = append(out, b)
		}
	}
	wg.Wait()
	require.Equal(t, data, out)
}

func TestRingBufferConcurrentOverwrite(t *testing.T) {
	r := NewRingBuffer(8, OverflowOverwrite)
	data := pattern(20000)
	var done atomic.Bool
	go func() {
		for _, b := range data {
			r.Write(b)
		}
		done.Store(true)
	}()
	var out []byte
	for !done.Load() || r.CanRead() {
		if b, err := r.TryRead(); err == nil {
			out = append(out, b)
		}
	}
	// what survives is an ordered subsequence of what was written
	pos := 0
	for _, b := range out {
		for pos < len(data) && data[pos] != b {
			pos++
		}
		require.True(t, pos < len(data), "byte %02x out of order", b)
		pos++
	}
	require.True(t, uint64(len(data)-len(out)) <= r.Overflows())
}

func TestOverflowPolicyParse(t *testing.T) {
	for _, p := range []OverflowPolicy{OverflowOverwrite, OverflowReject} {
		parsed, err := ParseOverflowPolicy(p.String())
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}
	_, err := ParseOverflowPolicy("drop")
	require.Error(t, err)
}

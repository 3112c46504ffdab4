package link

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/genlink/pkg/framework"
	"github.com/robotalks/genlink/pkg/serial"
)

// DefaultMaxFrame is the default limit of bytes carried by one Frame.
const DefaultMaxFrame = 256

// DefaultMaxTxQueue is the default limit of inbound bytes waiting for the
// transmit FIFO.
const DefaultMaxTxQueue = 4096

// Port is the part of the serial driver used by the bridge.
type Port interface {
	Port() serial.PortID
	Buffer() *serial.RingBuffer
	Poll()
	WriteReady() bool
	Write(byte)
}

// Bridge forwards a serial port over a packet transport.
type Bridge struct {
	Port     Port
	Conn     PacketReadWriter
	MaxFrame int
	// MaxTxQueue bounds inbound bytes waiting for the transmit FIFO,
	// bytes beyond it are dropped and counted in Stats.TxDropped.
	MaxTxQueue int

	seq     uint32
	peerSeq uint32
	synced  bool
	txQueue []byte
	txLock  sync.Mutex
	stats   Stats
}

// Stats are bridge counters.
type Stats struct {
	FramesOut uint64
	FramesIn  uint64
	BytesOut  uint64
	BytesIn   uint64
	SeqGaps   uint64
	BadFrames uint64
	TxPending int
	TxDropped uint64
	RxDropped uint64
}

// NewBridge creates a Bridge.
func NewBridge(port Port, conn PacketReadWriter) *Bridge {
	return &Bridge{Port: port, Conn: conn, MaxFrame: DefaultMaxFrame, MaxTxQueue: DefaultMaxTxQueue}
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	b.txLock.Lock()
	defer b.txLock.Unlock()
	st := b.stats
	st.TxPending = len(b.txQueue)
	if ring := b.Port.Buffer(); ring != nil {
		st.RxDropped = ring.Overflows()
	}
	return st
}

// Flush sends everything queued in the receive ring buffer.
func (b *Bridge) Flush() error {
	b.Port.Poll()
	ring := b.Port.Buffer()
	if ring == nil {
		return serial.ErrNotConfigured
	}
	max := b.MaxFrame
	if max <= 0 {
		max = DefaultMaxFrame
	}
	buf := make([]byte, max)
	for ring.CanRead() {
		n := ring.ReadInto(buf)
		if n == 0 {
			break
		}
		b.seq++
		pkt, err := EncodeFrame(&Frame{Port: uint32(b.Port.Port()), Seq: b.seq, Data: buf[:n]})
		if err != nil {
			return err
		}
		if err = b.Conn.WritePacket(pkt); err != nil {
			return err
		}
		b.txLock.Lock()
		b.stats.FramesOut++
		b.stats.BytesOut += uint64(n)
		b.txLock.Unlock()
		glog.V(2).Infof("bridge: frame %d out, %d bytes", b.seq, n)
	}
	return nil
}

// Pump moves queued bytes into the transmit FIFO while it has room.
// It never waits on the hardware.
func (b *Bridge) Pump() int {
	b.txLock.Lock()
	defer b.txLock.Unlock()
	n := 0
	for ; n < len(b.txQueue) && b.Port.WriteReady(); n++ {
		b.Port.Write(b.txQueue[n])
	}
	b.txQueue = b.txQueue[n:]
	return n
}

// HandlePacket decodes an inbound packet and queues its data for transmit.
func (b *Bridge) HandlePacket(pkt []byte) {
	f, err := DecodeFrame(pkt)
	b.txLock.Lock()
	defer b.txLock.Unlock()
	if err != nil {
		b.stats.BadFrames++
		glog.Warningf("bridge: bad frame: %v", err)
		return
	}
	if b.synced && f.Seq != b.peerSeq+1 {
		b.stats.SeqGaps++
		glog.Warningf("bridge: frame seq %d, expect %d", f.Seq, b.peerSeq+1)
	}
	b.peerSeq, b.synced = f.Seq, true
	b.stats.FramesIn++
	b.stats.BytesIn += uint64(len(f.Data))
	data := f.Data
	max := b.MaxTxQueue
	if max <= 0 {
		max = DefaultMaxTxQueue
	}
	if room := max - len(b.txQueue); len(data) > room {
		if room < 0 {
			room = 0
		}
		b.stats.TxDropped += uint64(len(data) - room)
		glog.Warningf("bridge: transmit queue full, %d bytes dropped", len(data)-room)
		data = data[:room]
	}
	b.txQueue = append(b.txQueue, data...)
}

// Run implements Runnable, receiving packets until the transport fails.
func (b *Bridge) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		for {
			pkt, err := b.Conn.ReadPacket()
			if err != nil {
				errCh <- err
				return
			}
			b.HandlePacket(pkt)
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// AddToLoop implements LoopAdder.
func (b *Bridge) AddToLoop(loop *fx.Loop) {
	if adder, ok := b.Conn.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := b.Conn.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddController(fx.PrLvReceive, fx.ControlFunc(func(fx.ControlContext) error {
		return b.Flush()
	}))
	loop.AddController(fx.PrLvTransmit, fx.ControlFunc(func(ctx fx.ControlContext) error {
		b.Pump()
		return nil
	}))
	loop.AddRunnable(fx.NamedRun("bridge", b))
}

package serial

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/genlink/pkg/hw"
)

// State is the lifecycle state of a Driver.
type State int32

// Driver states.
const (
	StateUninitialized State = iota
	StateConfigured
	StateActive
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateActive:
		return "active"
	}
	return "uninitialized"
}

// Options configures Init.
type Options struct {
	// Interrupt enables receive interrupts draining into the ring buffer.
	Interrupt bool
	// GPIO leaves the TL/TR pins in general I/O mode.
	GPIO bool
	// BufLen is the ring buffer size, SerialBufLen by default.
	BufLen int
	// Overflow is the ring buffer overflow policy.
	Overflow OverflowPolicy
	// Attempts bounds transmit polls in Send, hw.Unbounded by default.
	Attempts int
}

// Driver is the serial port driver.
type Driver struct {
	Regs hw.RegisterBank
	IRQ  hw.Interrupts

	port     PortID
	regs     PortRegs
	opts     Options
	ring     *RingBuffer
	state    int32
	rxErrors atomic.Uint64
}

// NewDriver creates an uninitialized driver. irq may be nil when
// interrupt mode is never requested.
func NewDriver(regs hw.RegisterBank, irq hw.Interrupts) *Driver {
	return &Driver{Regs: regs, IRQ: irq}
}

// Init selects the port and programs it at 4800 bps.
func (d *Driver) Init(port PortID, opts Options) error {
	regs, ok := port.Regs()
	if !ok {
		return ErrUnknownPort
	}
	if opts.Interrupt && d.IRQ == nil {
		return ErrNoInterrupts
	}
	if opts.BufLen == 0 {
		opts.BufLen = SerialBufLen
	}
	d.port, d.regs, d.opts = port, regs, opts
	d.ring = NewRingBuffer(opts.BufLen, opts.Overflow)

	sctrl := SCtrlBaud4800
	if !opts.GPIO {
		sctrl |= SCtrlSOUT | SCtrlSIN
	}
	if opts.Interrupt {
		sctrl |= SCtrlRINT
	}
	d.Regs.Write(regs.Ctrl, 0)
	d.Regs.Write(regs.SCtrl, uint16(sctrl))
	d.ResetFifos()

	if opts.Interrupt {
		d.IRQ.Handle(d.Drain)
		// the external interrupt is gated by the VDP, not the port
		mode3 := d.IRQ.VDPRegister(hw.VDPRegMode3) | hw.VDPMode3IE2
		d.Regs.Write(hw.VDPCtrlPort, hw.VDPRegisterWord(hw.VDPRegMode3, mode3))
		d.IRQ.SetMaskLevel(hw.ExternalIntLevel - 1)
	}
	atomic.StoreInt32(&d.state, int32(StateConfigured))
	glog.Infof("serial: %s configured at %d bps, interrupt=%v, buffer=%d", port, d.BaudRate(), opts.Interrupt, opts.BufLen)
	return nil
}

// State returns the lifecycle state.
func (d *Driver) State() State {
	return State(atomic.LoadInt32(&d.state))
}

// Port returns the selected port.
func (d *Driver) Port() PortID {
	return d.port
}

// Buffer returns the receive ring buffer, nil before Init.
func (d *Driver) Buffer() *RingBuffer {
	return d.ring
}

func (d *Driver) activate() {
	atomic.CompareAndSwapInt32(&d.state, int32(StateConfigured), int32(StateActive))
}

func (d *Driver) sctrl() byte {
	return byte(d.Regs.Read(d.regs.SCtrl))
}

// IsPresent always reports true, the hardware offers no presence detection.
func (d *Driver) IsPresent() bool {
	return true
}

// WriteReady reports whether the transmit FIFO has room.
func (d *Driver) WriteReady() bool {
	return d.sctrl()&SCtrlTFUL == 0
}

// Write puts a byte into the transmit FIFO. Callers check WriteReady first.
func (d *Driver) Write(b byte) {
	d.activate()
	d.Regs.Write(d.regs.TxData, uint16(b))
}

// ReadReady reports whether the receive FIFO holds a byte.
func (d *Driver) ReadReady() bool {
	return d.sctrl()&SCtrlRRDY != 0
}

// Read pops a byte from the receive FIFO. Callers check ReadReady first.
func (d *Driver) Read() byte {
	d.activate()
	return byte(d.Regs.Read(d.regs.RxData))
}

// ResetFifos discards pending received bytes, in hardware and in the ring buffer.
func (d *Driver) ResetFifos() {
	var n int
	for d.ReadReady() {
		d.Regs.Read(d.regs.RxData)
		n++
	}
	if d.ring != nil {
		d.ring.Reset()
	}
	if n > 0 {
		glog.V(2).Infof("serial: discarded %d stale bytes", n)
	}
}

// BaudRate decodes the baud select field of the serial control register.
func (d *Driver) BaudRate() int {
	return DecodeBaud((d.sctrl() & SCtrlBaudMask) >> 6)
}

// Drain moves the receive FIFO into the ring buffer. It is the receive
// interrupt routine and must not block. Bytes refused by a full ring buffer
// are counted in its Overflows.
func (d *Driver) Drain() {
	d.activate()
	for {
		sctrl := d.sctrl()
		if sctrl&SCtrlRERR != 0 {
			d.rxErrors.Add(1)
		}
		if sctrl&SCtrlRRDY == 0 {
			return
		}
		if err := d.ring.Write(byte(d.Regs.Read(d.regs.RxData))); err != nil && glog.V(2) {
			glog.Infof("serial: %s: byte dropped: %v", d.port, err)
		}
	}
}

// RxErrors returns how many times Drain saw the receive error flag.
func (d *Driver) RxErrors() uint64 {
	return d.rxErrors.Load()
}

// Send transmits p, polling WriteReady before each byte.
func (d *Driver) Send(ctx context.Context, p []byte) (int, error) {
	if d.State() == StateUninitialized {
		return 0, ErrNotConfigured
	}
	for n, b := range p {
		if err := hw.PollUntil(ctx, d.WriteReady, d.opts.Attempts); err != nil {
			if err == hw.ErrPollTimeout {
				err = ErrTxFull
			}
			return n, err
		}
		d.Write(b)
	}
	return len(p), nil
}

// Poll drains the receive FIFO from the main context, for ports
// configured without interrupts.
func (d *Driver) Poll() {
	if !d.opts.Interrupt && d.ring != nil {
		d.Drain()
	}
}

type portReader struct {
	ctx context.Context
	d   *Driver
}

type portWriter struct {
	ctx context.Context
	d   *Driver
}

// Reader returns an io.Reader over the receive ring buffer. Each Read
// waits for at least one byte, bounded by Options.Attempts.
func (d *Driver) Reader(ctx context.Context) io.Reader {
	return &portReader{ctx: ctx, d: d}
}

// Writer returns an io.Writer transmitting through Send.
func (d *Driver) Writer(ctx context.Context) io.Writer {
	return &portWriter{ctx: ctx, d: d}
}

func (r *portReader) Read(p []byte) (int, error) {
	ring := r.d.Buffer()
	if ring == nil {
		return 0, ErrNotConfigured
	}
	if len(p) == 0 {
		return 0, nil
	}
	err := hw.PollUntil(r.ctx, func() bool {
		r.d.Poll()
		return ring.CanRead()
	}, r.d.opts.Attempts)
	if err != nil {
		return 0, err
	}
	return ring.ReadInto(p), nil
}

func (w *portWriter) Write(p []byte) (int, error) {
	return w.d.Send(w.ctx, p)
}

package z80

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/genlink/pkg/hw"
)

// Z80 control ports and memory window in the main CPU address space.
const (
	BusReqPort uint32 = 0xA11100
	ResetPort  uint32 = 0xA11200
	RAMBase    uint32 = 0xA00000
	RAMSize           = 0x2000

	// BusReqBit is the request bit when written and the busy bit when read.
	BusReqBit uint16 = 0x0100
)

// Sound driver status, written by the resident Z80 firmware.
const (
	DriverStatus uint32 = 0x0102
	DriverReady  byte   = 0x80
)

// Arbiter requests and releases the Z80 bus.
type Arbiter struct {
	Regs hw.RegisterBank
	// Attempts bounds every poll, hw.Unbounded polls forever.
	Attempts int
}

// NewArbiter creates an Arbiter with unbounded polls.
func NewArbiter(regs hw.RegisterBank) *Arbiter {
	return &Arbiter{Regs: regs, Attempts: hw.Unbounded}
}

// IsBusTaken reports whether the main CPU currently owns the Z80 bus.
func (a *Arbiter) IsBusTaken() bool {
	return a.Regs.Read(BusReqPort)&BusReqBit == 0
}

// RequestBus asserts the bus request and waits for the grant.
// With reset, the Z80 is put through reset first so it is halted at a known
// state once the bus is granted. The request is withdrawn if the grant is
// not observed.
func (a *Arbiter) RequestBus(ctx context.Context, reset bool) error {
	if reset {
		a.startReset()
	}
	a.Regs.Write(BusReqPort, BusReqBit)
	if reset {
		a.endReset()
	}
	if err := a.poll(ctx, a.IsBusTaken); err != nil {
		// withdraw the request, a late grant would halt the Z80 with no owner
		a.ReleaseBus()
		return err
	}
	return nil
}

// ReleaseBus deasserts the bus request, the Z80 resumes on its own.
func (a *Arbiter) ReleaseBus() {
	a.Regs.Write(BusReqPort, 0)
}

// WaitReleased polls until the Z80 has taken the bus back.
func (a *Arbiter) WaitReleased(ctx context.Context) error {
	return a.poll(ctx, func() bool { return !a.IsBusTaken() })
}

// WithBus runs fn while owning the bus.
func (a *Arbiter) WithBus(ctx context.Context, fn func(ram hw.RegisterBank)) error {
	if err := a.RequestBus(ctx, false); err != nil {
		return err
	}
	fn(&ramWindow{a.Regs})
	a.ReleaseBus()
	return nil
}

// IsDriverReady takes the bus and checks the firmware ready flag.
// The bus is handed back to the Z80 before returning.
func (a *Arbiter) IsDriverReady(ctx context.Context) (ready bool, err error) {
	err = a.WithBus(ctx, func(ram hw.RegisterBank) {
		ready = byte(ram.Read(DriverStatus))&DriverReady != 0
	})
	if err == nil {
		err = a.WaitReleased(ctx)
	}
	return
}

// UploadProgram copies a program image into Z80 RAM, restarts the Z80 and
// waits for its firmware to report ready.
func (a *Arbiter) UploadProgram(ctx context.Context, image []byte, resetFirst bool) error {
	if len(image) > RAMSize {
		return &UploadError{Stage: StageValidate, Err: ErrImageTooLarge}
	}
	if err := a.RequestBus(ctx, resetFirst); err != nil {
		return &UploadError{Stage: StageRequest, Err: err}
	}
	ram := &ramWindow{a.Regs}
	for addr := uint32(0); addr < RAMSize; addr++ {
		var val byte
		if int(addr) < len(image) {
			val = image[addr]
		}
		ram.Write(addr, uint16(val))
	}
	a.startReset()
	a.ReleaseBus()
	a.endReset()
	glog.V(2).Infof("z80: uploaded %d bytes, waiting for driver", len(image))

	var probeErr error
	err := a.poll(ctx, func() bool {
		ready, err := a.IsDriverReady(ctx)
		if err != nil {
			probeErr = err
			return true
		}
		return ready
	})
	if probeErr != nil {
		err = probeErr
	}
	if err != nil {
		return &UploadError{Stage: StageReady, Err: err}
	}
	glog.Infof("z80: driver ready (%d bytes)", len(image))
	return nil
}

func (a *Arbiter) startReset() {
	a.Regs.Write(ResetPort, 0)
}

func (a *Arbiter) endReset() {
	a.Regs.Write(ResetPort, BusReqBit)
}

func (a *Arbiter) poll(ctx context.Context, pred func() bool) error {
	err := hw.PollUntil(ctx, pred, a.Attempts)
	if err == hw.ErrPollTimeout {
		return ErrBusTimeout
	}
	return err
}

// ramWindow addresses Z80 RAM relative to its base.
type ramWindow struct {
	regs hw.RegisterBank
}

func (w *ramWindow) Read(offset uint32) uint16 {
	return w.regs.Read(RAMBase + offset)
}

func (w *ramWindow) Write(offset uint32, val uint16) {
	w.regs.Write(RAMBase+offset, val)
}

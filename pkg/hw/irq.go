package hw

import (
	"sync"

	"github.com/golang/glog"
)

// VDP ports and registers involved in external interrupt routing.
const (
	VDPCtrlPort uint32 = 0xC00004

	// VDPRegMode3 is VDP mode register 3.
	VDPRegMode3 = 11
	// VDPMode3IE2 enables the external (level 2) interrupt.
	VDPMode3IE2 byte = 0x08

	// ExternalIntLevel is the CPU interrupt level of the external interrupt.
	ExternalIntLevel = 2
	// MaskAll masks all maskable interrupts.
	MaskAll = 7
)

// Interrupts is the interrupt controller as seen by drivers.
type Interrupts interface {
	// SetMaskLevel sets the CPU interrupt mask level (0-7).
	SetMaskLevel(level int)
	// Handle installs the external interrupt handler.
	Handle(fn func())
	// VDPRegister reads back the last value written to a VDP register,
	// the VDP itself has no register read.
	VDPRegister(reg int) byte
}

// IRQ dispatches the external interrupt.
//
// On the console the external interrupt (used by serial receive) is routed
// through the video processor: IE2 in VDP mode register 3 must be set and the
// CPU mask level must be below ExternalIntLevel before a handler runs.
type IRQ struct {
	vdpRegs   [24]byte
	maskLevel int
	handler   func()
	raised    int
	dispatch  int
	lock      sync.Mutex
}

// NewIRQ creates an IRQ with all interrupts masked.
func NewIRQ() *IRQ {
	return &IRQ{maskLevel: MaskAll}
}

// Attach decodes VDP register writes sent to the control port of bank.
func (q *IRQ) Attach(bank *Bank) *IRQ {
	bank.Reserve(VDPCtrlPort, nil, func(val uint16) uint16 {
		if val&0xE000 == 0x8000 {
			q.SetVDPRegister(int(val>>8)&0x1f, byte(val))
		}
		return val
	})
	return q
}

// VDPRegisterWord encodes a VDP register write command for the control port.
func VDPRegisterWord(reg int, val byte) uint16 {
	return 0x8000 | uint16(reg&0x1f)<<8 | uint16(val)
}

// SetVDPRegister sets a VDP register value.
func (q *IRQ) SetVDPRegister(reg int, val byte) {
	if reg < 0 || reg >= len(q.vdpRegs) {
		return
	}
	q.lock.Lock()
	q.vdpRegs[reg] = val
	q.lock.Unlock()
	glog.V(4).Infof("VDP reg %d = %02x", reg, val)
}

// VDPRegister reads back a VDP register value.
func (q *IRQ) VDPRegister(reg int) byte {
	if reg < 0 || reg >= len(q.vdpRegs) {
		return 0
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.vdpRegs[reg]
}

// SetMaskLevel implements Interrupts.
func (q *IRQ) SetMaskLevel(level int) {
	if level < 0 {
		level = 0
	} else if level > MaskAll {
		level = MaskAll
	}
	q.lock.Lock()
	q.maskLevel = level
	q.lock.Unlock()
}

// MaskLevel returns the current mask level.
func (q *IRQ) MaskLevel() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.maskLevel
}

// Handle implements Interrupts.
func (q *IRQ) Handle(fn func()) {
	q.lock.Lock()
	q.handler = fn
	q.lock.Unlock()
}

// ExternalEnabled indicates if an external interrupt would be dispatched.
func (q *IRQ) ExternalEnabled() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.externalEnabled()
}

func (q *IRQ) externalEnabled() bool {
	return q.vdpRegs[VDPRegMode3]&VDPMode3IE2 != 0 && q.maskLevel < ExternalIntLevel
}

// Raise asserts the external interrupt line and runs the handler
// synchronously if the interrupt is enabled. It reports whether the
// handler ran.
func (q *IRQ) Raise() bool {
	q.lock.Lock()
	q.raised++
	fn := q.handler
	enabled := q.externalEnabled()
	if enabled && fn != nil {
		q.dispatch++
	}
	q.lock.Unlock()
	if !enabled || fn == nil {
		return false
	}
	fn()
	return true
}

// Stats returns the number of raised and dispatched interrupts.
func (q *IRQ) Stats() (raised, dispatched int) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.raised, q.dispatch
}

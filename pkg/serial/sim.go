package serial

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/genlink/pkg/hw"
)

// SimUART simulates the serial function of a port on a hw.Bank.
type SimUART struct {
	// TxDepth and RxDepth are the hardware FIFO depths.
	TxDepth int
	RxDepth int
	// Hold keeps transmitted bytes in the FIFO until Shift is called.
	Hold bool
	// OnTransmit receives every byte leaving the transmit FIFO.
	OnTransmit func(byte)
	// IRQ is raised on received bytes when receive interrupts are enabled.
	IRQ *hw.IRQ

	regs  PortRegs
	sctrl byte
	rerr  bool
	last  byte
	tx    []byte
	rx    []byte
	lock  sync.Mutex
}

// NewSimUART creates a SimUART with a 1-byte transmit FIFO.
func NewSimUART(irq *hw.IRQ) *SimUART {
	return &SimUART{TxDepth: 1, RxDepth: 16, IRQ: irq}
}

// Attach installs the port registers on bank.
func (u *SimUART) Attach(bank *hw.Bank, port PortID) (*SimUART, error) {
	regs, ok := port.Regs()
	if !ok {
		return nil, ErrUnknownPort
	}
	u.regs = regs
	bank.Reserve(regs.SCtrl, u.readSCtrl, u.writeSCtrl)
	bank.Reserve(regs.TxData, nil, u.writeTx)
	bank.Reserve(regs.RxData, u.readRx, nil)
	return u, nil
}

func (u *SimUART) readSCtrl(uint16) uint16 {
	u.lock.Lock()
	defer u.lock.Unlock()
	val := u.sctrl &^ SCtrlStatusMask
	if len(u.tx) >= u.TxDepth {
		val |= SCtrlTFUL
	}
	if len(u.rx) > 0 {
		val |= SCtrlRRDY
	}
	if u.rerr {
		val |= SCtrlRERR
		u.rerr = false
	}
	return uint16(val)
}

func (u *SimUART) writeSCtrl(val uint16) uint16 {
	u.lock.Lock()
	u.sctrl = byte(val) &^ SCtrlStatusMask
	u.lock.Unlock()
	return val
}

func (u *SimUART) writeTx(val uint16) uint16 {
	u.lock.Lock()
	if len(u.tx) < u.TxDepth {
		u.tx = append(u.tx, byte(val))
	} else {
		glog.V(2).Info("uart sim: transmit overrun")
	}
	var out []byte
	if !u.Hold {
		out, u.tx = u.tx, nil
	}
	fn := u.OnTransmit
	u.lock.Unlock()
	if fn != nil {
		for _, b := range out {
			fn(b)
		}
	}
	return val
}

func (u *SimUART) readRx(uint16) uint16 {
	u.lock.Lock()
	defer u.lock.Unlock()
	if len(u.rx) > 0 {
		u.last, u.rx = u.rx[0], u.rx[1:]
	}
	return uint16(u.last)
}

// Shift moves up to n bytes out of the transmit FIFO and returns them.
func (u *SimUART) Shift(n int) []byte {
	u.lock.Lock()
	if n > len(u.tx) {
		n = len(u.tx)
	}
	out := append([]byte(nil), u.tx[:n]...)
	u.tx = u.tx[n:]
	fn := u.OnTransmit
	u.lock.Unlock()
	if fn != nil {
		for _, b := range out {
			fn(b)
		}
	}
	return out
}

// Inject delivers bytes from the line. The receive interrupt is raised after
// every byte when enabled. Bytes arriving at a full FIFO are lost and flag a
// receive error.
func (u *SimUART) Inject(data ...byte) {
	for _, b := range data {
		u.lock.Lock()
		if len(u.rx) < u.RxDepth {
			u.rx = append(u.rx, b)
		} else {
			u.rerr = true
		}
		raise := u.sctrl&SCtrlRINT != 0 && u.IRQ != nil
		u.lock.Unlock()
		if raise {
			u.IRQ.Raise()
		}
	}
}

// Pending returns the number of bytes in the receive FIFO.
func (u *SimUART) Pending() int {
	u.lock.Lock()
	defer u.lock.Unlock()
	return len(u.rx)
}

// SetBaudField forces the baud select field, as a line configured by
// other means would.
func (u *SimUART) SetBaudField(field byte) {
	u.lock.Lock()
	u.sctrl = u.sctrl&^SCtrlBaudMask | (field&3)<<6
	u.lock.Unlock()
}

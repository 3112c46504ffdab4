package serial

import (
	"fmt"
	"strings"
)

// PortID selects a physical port.
type PortID int

// Ports with serial capability.
const (
	IoPortCtrl2 PortID = iota + 1
	IoPortExt
)

// PortRegs are the register addresses of a port.
type PortRegs struct {
	Ctrl   uint32 // pin direction control (RW)
	SCtrl  uint32 // serial control and status (RW)
	TxData uint32 // transmit data (W)
	RxData uint32 // receive data (R)
}

var portRegs = map[PortID]PortRegs{
	IoPortCtrl2: {Ctrl: 0xA1000B, SCtrl: 0xA10019, TxData: 0xA10015, RxData: 0xA10017},
	IoPortExt:   {Ctrl: 0xA1000D, SCtrl: 0xA1001F, TxData: 0xA1001B, RxData: 0xA1001D},
}

// Regs returns the registers of the port.
func (p PortID) Regs() (PortRegs, bool) {
	regs, ok := portRegs[p]
	return regs, ok
}

// String implements fmt.Stringer.
func (p PortID) String() string {
	switch p {
	case IoPortCtrl2:
		return "ctrl2"
	case IoPortExt:
		return "ext"
	}
	return fmt.Sprintf("port(%d)", int(p))
}

// ParsePort parses a port name as produced by String.
func ParsePort(name string) (PortID, error) {
	switch strings.ToLower(name) {
	case "ctrl2", "port2":
		return IoPortCtrl2, nil
	case "ext", "exp":
		return IoPortExt, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPort, name)
}

// Serial control register bits.
const (
	SCtrlTFUL byte = 0x01 // transmit full (R)
	SCtrlRRDY byte = 0x02 // receive ready (R)
	SCtrlRERR byte = 0x04 // receive error (R)
	SCtrlRINT byte = 0x08 // interrupt on receive ready
	SCtrlSOUT byte = 0x10 // TL pin is serial out
	SCtrlSIN  byte = 0x20 // TR pin is serial in

	SCtrlBaudMask byte = 0xC0
	SCtrlBaud4800 byte = 0x00
	SCtrlBaud2400 byte = 0x40
	SCtrlBaud1200 byte = 0x80
	SCtrlBaud300  byte = 0xC0

	// SCtrlStatusMask are the read-only status bits.
	SCtrlStatusMask = SCtrlTFUL | SCtrlRRDY | SCtrlRERR
)

// Baud rates.
const (
	Baud300  = 300
	Baud1200 = 1200
	Baud2400 = 2400
	Baud4800 = 4800
)

// DecodeBaud decodes a 2-bit baud select field.
// Only the 300 bps pattern is matched, all other patterns decode as the
// 4800 bps default, which is what the port driver has always reported.
func DecodeBaud(field byte) int {
	switch field & 3 {
	case SCtrlBaud300 >> 6:
		return Baud300
	default:
		return Baud4800
	}
}

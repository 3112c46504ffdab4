package z80

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/genlink/pkg/hw"
)

// Firmware is run by Sim once the Z80 has executed BootDelay steps after a
// reset. It receives the Z80 RAM.
type Firmware func(ram *hw.Memory)

// ReadyFirmware sets the driver ready flag, as every resident driver does
// at the end of its initialization.
func ReadyFirmware(ram *hw.Memory) {
	ram.Write(DriverStatus, ram.Read(DriverStatus)|uint16(DriverReady))
}

// Sim simulates the Z80 side of the bus handshake.
//
// Time advances by one step on every access to the bus request port, which
// is where the main CPU spends its time while arbitrating.
type Sim struct {
	// GrantDelay is the number of steps before a requested bus is granted.
	GrantDelay int
	// ReleaseDelay is the number of steps before a released bus goes back to the Z80.
	ReleaseDelay int
	// BootDelay is the number of running steps after reset before Firmware runs.
	BootDelay int
	// Hang makes the Z80 ignore bus requests and releases.
	Hang bool
	// Firmware is invoked on boot, ReadyFirmware by default.
	Firmware Firmware

	RAM *hw.Memory

	busReq    bool
	granted   bool
	reset     bool
	booted    bool
	countdown int
	bootSteps int
	steps     int
	lock      sync.Mutex
}

// NewSim creates a simulated Z80 in its power-on state: held in reset.
func NewSim() *Sim {
	return &Sim{
		GrantDelay:   2,
		ReleaseDelay: 1,
		BootDelay:    8,
		Firmware:     ReadyFirmware,
		RAM:          hw.NewMemory(RAMSize),
		reset:        true,
	}
}

// Attach installs the Z80 ports and RAM window on bank.
func (s *Sim) Attach(bank *hw.Bank) *Sim {
	bank.MapRegion(RAMBase, RAMSize, s.RAM)
	bank.Reserve(BusReqPort, s.readBusReq, s.writeBusReq)
	bank.Reserve(ResetPort, nil, s.writeReset)
	return s
}

// Granted reports whether the bus is handed to the main CPU.
func (s *Sim) Granted() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.granted
}

// Booted reports whether firmware ran since the last reset.
func (s *Sim) Booted() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.booted
}

// Steps returns the number of elapsed steps.
func (s *Sim) Steps() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.steps
}

func (s *Sim) readBusReq(uint16) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.step()
	if s.granted {
		return 0
	}
	return BusReqBit
}

func (s *Sim) writeBusReq(val uint16) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	req := val&BusReqBit != 0
	if req != s.busReq && !s.Hang {
		s.busReq = req
		if req {
			s.countdown = s.GrantDelay
		} else {
			s.countdown = s.ReleaseDelay
		}
	}
	s.step()
	return val
}

func (s *Sim) writeReset(val uint16) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	held := val&BusReqBit == 0
	if held && !s.reset {
		s.booted = false
	} else if !held && s.reset {
		s.bootSteps = s.BootDelay
		glog.V(4).Info("z80 sim: reset released")
	}
	s.reset = held
	return val
}

// step advances the handshake and the firmware by one step.
func (s *Sim) step() {
	s.steps++
	switch {
	case s.busReq && !s.granted:
		if s.countdown <= 0 {
			s.granted = true
			glog.V(4).Infof("z80 sim: bus granted at step %d", s.steps)
			return
		}
		s.countdown--
	case !s.busReq && s.granted:
		if s.countdown <= 0 {
			s.granted = false
			glog.V(4).Infof("z80 sim: bus released at step %d", s.steps)
		} else {
			s.countdown--
		}
		return
	}
	// the Z80 executes only while it holds its bus and is out of reset
	if s.granted || s.reset || s.booted {
		return
	}
	if s.bootSteps > 0 {
		s.bootSteps--
		return
	}
	s.booted = true
	if fw := s.Firmware; fw != nil {
		fw(s.RAM)
	}
	glog.V(4).Infof("z80 sim: firmware booted at step %d", s.steps)
}

package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/genlink/pkg/framework"
	"github.com/robotalks/genlink/pkg/hw"
	"github.com/robotalks/genlink/pkg/hw/mmio"
	"github.com/robotalks/genlink/pkg/serial"
	"github.com/robotalks/genlink/pkg/z80"
)

// Register windows mapped from the device file in MMIO mode.
// The Z80 control window holds both the bus request and reset ports.
const (
	ioWindow     = 0xA10000
	ioSize       = 0x1000
	z80CtlWindow = 0xA11000
	z80CtlSize   = 0x2000
)

// Machine is the register bank with the drivers on top, and the simulated
// hardware when not backed by MMIO.
type Machine struct {
	Config  *Config
	Bank    *hw.Bank
	IRQ     *hw.IRQ
	Arbiter *z80.Arbiter
	Serial  *serial.Driver

	// Simulated hardware, nil with MMIO.
	Z80  *z80.Sim
	UART *serial.SimUART

	closers []io.Closer
}

// NewMachine creates the machine described by the config.
func (c *Config) NewMachine() (*Machine, error) {
	port, opts, err := c.SerialOptions()
	if err != nil {
		return nil, err
	}
	m := &Machine{Config: c, Bank: hw.NewBank(), IRQ: hw.NewIRQ()}
	m.IRQ.Attach(m.Bank)
	if c.MMIO != "" {
		if opts.Interrupt {
			return nil, errors.New("interrupt mode is only available on a simulated machine")
		}
		if err = m.mapMMIO(); err != nil {
			m.Close()
			return nil, err
		}
	} else {
		m.Z80 = z80.NewSim().Attach(m.Bank)
		if m.UART, err = serial.NewSimUART(m.IRQ).Attach(m.Bank, port); err != nil {
			return nil, err
		}
		if c.Loopback {
			m.UART.OnTransmit = func(b byte) { m.UART.Inject(b) }
		}
	}
	m.Arbiter = z80.NewArbiter(m.Bank)
	m.Arbiter.Attempts = c.Attempts
	m.Serial = serial.NewDriver(m.Bank, m.IRQ)
	return m, nil
}

// MustNewMachine creates the machine and fails on error.
func (c *Config) MustNewMachine() *Machine {
	m, err := c.NewMachine()
	if err != nil {
		log.Fatalln(err)
	}
	return m
}

func (m *Machine) mapMMIO() error {
	windows := []struct {
		base, size uint32
		width      int
	}{
		{ioWindow, ioSize, 1},
		{z80CtlWindow, z80CtlSize, 2},
		{z80.RAMBase, z80.RAMSize, 1},
	}
	for _, w := range windows {
		bank, err := mmio.Open(m.Config.MMIO, int64(w.base), int(w.size), w.width)
		if err != nil {
			return err
		}
		m.closers = append(m.closers, bank)
		m.Bank.MapRegion(w.base, w.size, bank)
	}
	return nil
}

// Start configures the serial port and uploads the Z80 firmware if any.
func (m *Machine) Start(ctx context.Context) error {
	port, opts, err := m.Config.SerialOptions()
	if err != nil {
		return err
	}
	if err = m.Serial.Init(port, opts); err != nil {
		return err
	}
	if fn := m.Config.Firmware; fn != "" {
		image, err := ioutil.ReadFile(fn)
		if err != nil {
			return err
		}
		if err = m.Arbiter.UploadProgram(ctx, image, true); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
	}
	return nil
}

// AddToLoop implements LoopAdder: ports without interrupts are drained
// from the main loop.
func (m *Machine) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvReceive, fx.ControlFunc(func(fx.ControlContext) error {
		m.Serial.Poll()
		if ring := m.Serial.Buffer(); ring != nil && ring.Overflows() > 0 && glog.V(2) {
			glog.Infof("serial: %d bytes overwritten", ring.Overflows())
		}
		return nil
	}))
}

// Close releases mapped registers.
func (m *Machine) Close() error {
	var errs fx.AggregatedError
	for _, c := range m.closers {
		errs.Add(c.Close())
	}
	m.closers = nil
	return errs.Aggregate()
}

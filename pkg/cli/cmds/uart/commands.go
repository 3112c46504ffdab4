package uart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/genlink/pkg/cli/sh"
	"github.com/robotalks/genlink/pkg/env"
	"github.com/robotalks/genlink/pkg/serial"
)

// Stat reports the serial port and its ring buffer.
type Stat struct {
	Port       string `json:"port"`
	State      string `json:"state"`
	Baud       int    `json:"baud"`
	Size       int    `json:"size"`
	Buffered   int    `json:"buffered"`
	Available  uint16 `json:"available"`
	Overflows  uint64 `json:"overflows"`
	Underflows uint64 `json:"underflows"`
	RxErrors   uint64 `json:"rx-errors"`
}

func (s Stat) String() string {
	return fmt.Sprintf("%s %s %dbps buffered=%d/%d available=%d overflows=%d underflows=%d rx-errors=%d",
		s.Port, s.State, s.Baud, s.Buffered, s.Size, s.Available, s.Overflows, s.Underflows, s.RxErrors)
}

// QueryStat collects port statistics.
func QueryStat(d *serial.Driver) (Stat, error) {
	ring := d.Buffer()
	if ring == nil {
		return Stat{}, serial.ErrNotConfigured
	}
	return Stat{
		Port:       d.Port().String(),
		State:      d.State().String(),
		Baud:       d.BaudRate(),
		Size:       ring.Size(),
		Buffered:   ring.Buffered(),
		Available:  ring.Available(),
		Overflows:  ring.Overflows(),
		Underflows: ring.Underflows(),
		RxErrors:   d.RxErrors(),
	}, nil
}

// Init configures the port of the machine, mode is "irq" or "poll".
func Init(m *env.Machine, mode string) error {
	conf := *m.Config
	switch mode {
	case "":
	case "irq":
		conf.Interrupt = true
	case "poll":
		conf.Interrupt = false
	default:
		return fmt.Errorf("invalid mode %q", mode)
	}
	port, opts, err := conf.SerialOptions()
	if err != nil {
		return err
	}
	if opts.Interrupt && m.UART == nil {
		return serial.ErrNoInterrupts
	}
	return m.Serial.Init(port, opts)
}

// Recv takes up to max bytes from the ring buffer, all if max <= 0.
func Recv(d *serial.Driver, max int) ([]byte, error) {
	ring := d.Buffer()
	if ring == nil {
		return nil, serial.ErrNotConfigured
	}
	if max <= 0 {
		max = ring.Size()
	}
	buf := make([]byte, max)
	return buf[:ring.ReadInto(buf)], nil
}

var (
	// SerialInitCmd configures the serial port.
	SerialInitCmd = ishell.Cmd{
		Name:    "serial.init",
		Aliases: []string{"si"},
		Help:    "[irq|poll]",
		Func: func(c *ishell.Context) {
			var mode string
			if len(c.Args) > 0 {
				mode = c.Args[0]
			}
			sh.OK(c, Init(sh.MachineFrom(c), mode))
		},
	}

	// SerialSendCmd transmits text.
	SerialSendCmd = ishell.Cmd{
		Name:    "serial.send",
		Aliases: []string{"ss"},
		Help:    "TEXT...",
		Func: sh.WithTimeout(func(c *ishell.Context, ctx context.Context) {
			_, err := sh.MachineFrom(c).Serial.Send(ctx, []byte(strings.Join(c.Args, " ")))
			sh.OK(c, err)
		}),
	}

	// SerialInjectCmd delivers text on the receive line of a simulated port.
	SerialInjectCmd = ishell.Cmd{
		Name:    "serial.inject",
		Aliases: []string{"sinj"},
		Help:    "TEXT...",
		Func: func(c *ishell.Context) {
			m := sh.MachineFrom(c)
			if m.UART == nil {
				c.Err(errors.New("not a simulated machine"))
				return
			}
			m.UART.Inject([]byte(strings.Join(c.Args, " "))...)
			sh.OK(c, nil)
		},
	}

	// SerialRecvCmd prints received bytes.
	SerialRecvCmd = ishell.Cmd{
		Name:    "serial.recv",
		Aliases: []string{"sr"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			var max int
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("invalid COUNT: %v", err))
					return
				}
				max = n
			}
			data, err := Recv(sh.MachineFrom(c).Serial, max)
			if err != nil {
				c.Err(err)
				return
			}
			if sh.ShellFrom(c).OutputJSON {
				sh.Print(c, data)
				return
			}
			c.Println(strconv.Quote(string(data)))
		},
	}

	// SerialStatCmd shows port statistics.
	SerialStatCmd = ishell.Cmd{
		Name:    "serial.stat",
		Aliases: []string{"sst", "ring.stat"},
		Help:    "",
		Func: func(c *ishell.Context) {
			st, err := QueryStat(sh.MachineFrom(c).Serial)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, st)
		},
	}
)

func init() {
	sh.AddCmds(
		&SerialInitCmd,
		&SerialSendCmd,
		&SerialInjectCmd,
		&SerialRecvCmd,
		&SerialStatCmd,
	)
}

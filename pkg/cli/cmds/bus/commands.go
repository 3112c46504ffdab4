package bus

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/genlink/pkg/cli/sh"
	"github.com/robotalks/genlink/pkg/env"
)

// Status reports the Z80 bus state.
type Status struct {
	Taken       bool `json:"taken"`
	DriverReady bool `json:"driver-ready"`
	Booted      bool `json:"booted,omitempty"`
}

func (s Status) String() string {
	owner := "z80"
	if s.Taken {
		owner = "68k"
	}
	str := fmt.Sprintf("bus=%s ready=%v", owner, s.DriverReady)
	if s.Booted {
		str += " booted"
	}
	return str
}

// QueryStatus probes the bus and the driver status flag.
// Probing the flag requests the bus, so it's skipped while the bus is taken.
func QueryStatus(ctx context.Context, m *env.Machine) (st Status, err error) {
	st.Taken = m.Arbiter.IsBusTaken()
	if !st.Taken {
		if st.DriverReady, err = m.Arbiter.IsDriverReady(ctx); err != nil {
			return
		}
	}
	if m.Z80 != nil {
		st.Booted = m.Z80.Booted()
	}
	return
}

// Upload uploads a program image file.
func Upload(ctx context.Context, m *env.Machine, fn string, reset bool) error {
	image, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	return m.Arbiter.UploadProgram(ctx, image, reset)
}

func parseReset(args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "reset":
		return true, nil
	case "noreset":
		return false, nil
	}
	return false, fmt.Errorf("invalid option %q", args[0])
}

var (
	// BusRequestCmd requests the Z80 bus.
	BusRequestCmd = ishell.Cmd{
		Name:    "bus.request",
		Aliases: []string{"breq"},
		Help:    "[reset]",
		Func: sh.WithTimeout(func(c *ishell.Context, ctx context.Context) {
			reset, err := parseReset(c.Args)
			if err == nil {
				err = sh.MachineFrom(c).Arbiter.RequestBus(ctx, reset)
			}
			sh.OK(c, err)
		}),
	}

	// BusReleaseCmd releases the Z80 bus and waits until the Z80 owns it.
	BusReleaseCmd = ishell.Cmd{
		Name:    "bus.release",
		Aliases: []string{"brel"},
		Help:    "",
		Func: sh.WithTimeout(func(c *ishell.Context, ctx context.Context) {
			arb := sh.MachineFrom(c).Arbiter
			arb.ReleaseBus()
			sh.OK(c, arb.WaitReleased(ctx))
		}),
	}

	// BusStatusCmd shows bus ownership and driver status.
	BusStatusCmd = ishell.Cmd{
		Name:    "bus.status",
		Aliases: []string{"bs"},
		Help:    "",
		Func: sh.WithTimeout(func(c *ishell.Context, ctx context.Context) {
			st, err := QueryStatus(ctx, sh.MachineFrom(c))
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, st)
		}),
	}

	// Z80UploadCmd uploads a Z80 program.
	Z80UploadCmd = ishell.Cmd{
		Name:    "z80.upload",
		Aliases: []string{"zup"},
		Help:    "FILE [reset|noreset]",
		Func: sh.WithTimeout(func(c *ishell.Context, ctx context.Context) {
			if len(c.Args) < 1 {
				c.Err(errors.New("FILE required"))
				return
			}
			reset := true
			if len(c.Args) > 1 {
				var err error
				if reset, err = parseReset(c.Args[1:]); err != nil {
					c.Err(err)
					return
				}
			}
			sh.OK(c, Upload(ctx, sh.MachineFrom(c), c.Args[0], reset))
		}),
	}
)

func init() {
	sh.AddCmds(
		&BusRequestCmd,
		&BusReleaseCmd,
		&BusStatusCmd,
		&Z80UploadCmd,
	)
}

package env

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/genlink/pkg/framework"
	"github.com/robotalks/genlink/pkg/serial"
	"github.com/robotalks/genlink/pkg/z80"
)

func TestConfigSerialOptions(t *testing.T) {
	conf := NewConfig()
	require.NotEmpty(t, conf.DeviceID)
	port, opts, err := conf.SerialOptions()
	require.NoError(t, err)
	require.Equal(t, serial.IoPortExt, port)
	require.True(t, opts.Interrupt)
	require.Equal(t, serial.OverflowOverwrite, opts.Overflow)

	conf.Port = "ctrl3"
	_, _, err = conf.SerialOptions()
	require.True(t, errors.Is(err, serial.ErrUnknownPort))

	conf.Port = "ctrl2"
	conf.Overflow = "spill"
	_, _, err = conf.SerialOptions()
	require.Error(t, err)
}

func TestMachineLoopback(t *testing.T) {
	conf := NewConfig()
	conf.Loopback = true
	m, err := conf.NewMachine()
	require.NoError(t, err)
	defer m.Close()
	require.NotNil(t, m.Z80)
	require.NotNil(t, m.UART)

	require.NoError(t, m.Start(context.Background()))
	require.Equal(t, serial.StateConfigured, m.Serial.State())
	n, err := m.Serial.Send(context.Background(), []byte("ping"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, serial.StateActive, m.Serial.State())
	out := make([]byte, 8)
	n = m.Serial.Buffer().ReadInto(out)
	require.Equal(t, "ping", string(out[:n]))
}

func TestMachinePolled(t *testing.T) {
	conf := NewConfig()
	conf.Interrupt = false
	conf.Port = "ctrl2"
	m, err := conf.NewMachine()
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	loop := fx.NewLoop()
	loop.Add(m)
	m.UART.Inject('o', 'k')
	loop.RunOnce(context.Background())
	out := make([]byte, 8)
	n := m.Serial.Buffer().ReadInto(out)
	require.Equal(t, "ok", string(out[:n]))
}

func TestMachineFirmware(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "driver.bin")
	require.NoError(t, ioutil.WriteFile(fn, []byte{0xf3, 0x31, 0x00, 0x20}, 0644))

	conf := NewConfig()
	conf.Firmware = fn
	m, err := conf.NewMachine()
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	require.True(t, m.Z80.Booted())
	require.Equal(t, []byte{0xf3, 0x31, 0x00, 0x20}, m.Z80.RAM.Snapshot()[:4])
	require.False(t, m.Arbiter.IsBusTaken())
	ready, err := m.Arbiter.IsDriverReady(context.Background())
	require.NoError(t, err)
	require.True(t, ready)
}

func TestMachineFirmwareTooLarge(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "huge.bin")
	require.NoError(t, ioutil.WriteFile(fn, make([]byte, z80.RAMSize+1), 0644))
	conf := NewConfig()
	conf.Firmware = fn
	m, err := conf.NewMachine()
	require.NoError(t, err)
	err = m.Start(context.Background())
	require.True(t, errors.Is(err, z80.ErrImageTooLarge))
}

func TestMachineMMIORejectsInterrupts(t *testing.T) {
	conf := NewConfig()
	conf.MMIO = "/dev/null"
	_, err := conf.NewMachine()
	require.Error(t, err)
}

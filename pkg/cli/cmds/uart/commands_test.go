package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/genlink/pkg/env"
	"github.com/robotalks/genlink/pkg/serial"
)

func newMachine(t *testing.T) *env.Machine {
	conf := env.NewConfig()
	conf.Interrupt = false
	m, err := conf.NewMachine()
	require.NoError(t, err)
	return m
}

func TestRecvBeforeInit(t *testing.T) {
	m := newMachine(t)
	_, err := Recv(m.Serial, 0)
	require.True(t, errors.Is(err, serial.ErrNotConfigured))
	_, err = QueryStat(m.Serial)
	require.True(t, errors.Is(err, serial.ErrNotConfigured))
}

func TestInitModes(t *testing.T) {
	m := newMachine(t)
	require.Error(t, Init(m, "dma"))
	require.NoError(t, Init(m, "irq"))
	m.UART.Inject('a', 'b', 'c')

	data, err := Recv(m.Serial, 2)
	require.NoError(t, err)
	require.Equal(t, "ab", string(data))

	st, err := QueryStat(m.Serial)
	require.NoError(t, err)
	require.Equal(t, "ext", st.Port)
	require.Equal(t, "active", st.State)
	require.Equal(t, 4800, st.Baud)
	require.Equal(t, 1, st.Buffered)
	require.Equal(t, serial.SerialBufLen, st.Size)

	data, err = Recv(m.Serial, 0)
	require.NoError(t, err)
	require.Equal(t, "c", string(data))
}

func TestInitPolled(t *testing.T) {
	m := newMachine(t)
	require.NoError(t, Init(m, "poll"))
	m.UART.Inject('z')
	data, err := Recv(m.Serial, 0)
	require.NoError(t, err)
	require.Empty(t, data)
	m.Serial.Poll()
	data, err = Recv(m.Serial, 0)
	require.NoError(t, err)
	require.Equal(t, "z", string(data))

	var sent []byte
	m.UART.OnTransmit = func(b byte) { sent = append(sent, b) }
	_, err = m.Serial.Send(context.Background(), []byte("ok"))
	require.NoError(t, err)
	require.Equal(t, "ok", string(sent))
}

package env

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/genlink/pkg/framework"
	"github.com/robotalks/genlink/pkg/link"
	"github.com/robotalks/genlink/pkg/link/stream"
	"github.com/robotalks/genlink/pkg/serial"
)

func TestDialLinkUnsupported(t *testing.T) {
	conf := NewConfig()
	conf.LinkURL = "carrier-pigeon://coop"
	_, err := conf.DialLink()
	require.Error(t, err)
}

func TestBridgeOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	hostCh := make(chan *stream.ReadWriter, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			hostCh <- stream.New(conn)
		}
	}()

	conf := NewConfig()
	conf.LinkURL = "tcp://" + ln.Addr().String()
	conf.Interval = time.Millisecond
	l, err := conf.DialLink()
	require.NoError(t, err)
	defer l.Close()
	var host *stream.ReadWriter
	select {
	case host = <-hostCh:
	case <-time.After(time.Second):
		t.Fatal("no connection")
	}
	defer host.Close()

	m, err := conf.NewMachine()
	require.NoError(t, err)
	sent := make(chan byte, 16)
	m.UART.OnTransmit = func(b byte) { sent <- b }
	require.NoError(t, m.Start(context.Background()))

	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.Add(m, link.NewBridge(m.Serial, l.Conn))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	pkt, err := link.EncodeFrame(&link.Frame{Port: uint32(serial.IoPortExt), Seq: 1, Data: []byte("hi")})
	require.NoError(t, err)
	require.NoError(t, host.WritePacket(pkt))
	var out []byte
	for len(out) < 2 {
		select {
		case b := <-sent:
			out = append(out, b)
		case <-time.After(time.Second):
			t.Fatalf("transmitted %q", out)
		}
	}
	require.Equal(t, "hi", string(out))

	m.UART.Inject('y', 'o')
	var in []byte
	for len(in) < 2 {
		pkt, err := host.ReadPacket()
		require.NoError(t, err)
		f, err := link.DecodeFrame(pkt)
		require.NoError(t, err)
		require.Equal(t, uint32(serial.IoPortExt), f.Port)
		in = append(in, f.Data...)
	}
	require.Equal(t, "yo", string(in))
}

package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWritePacket(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Error(t, err)
}

func TestOversizedPacket(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0x7f})
	_, err := New(buf).ReadPacket()
	require.Error(t, err)
}

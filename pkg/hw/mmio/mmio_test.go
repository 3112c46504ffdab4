package mmio

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mapTemp(t *testing.T, width int) (*Bank, string) {
	dir, err := ioutil.TempDir("", "mmio")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	fn := filepath.Join(dir, "regs")
	require.NoError(t, ioutil.WriteFile(fn, make([]byte, os.Getpagesize()), 0644))
	b, err := Open(fn, 0, os.Getpagesize(), width)
	require.NoError(t, err)
	return b, fn
}

func TestWordAccess(t *testing.T) {
	b, fn := mapTemp(t, 2)
	b.Write(0x100, 0x0123)
	require.Equal(t, uint16(0x0123), b.Read(0x100))
	require.NoError(t, b.Close())

	content, err := ioutil.ReadFile(fn)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x23}, content[0x100:0x102])
}

func TestByteAccess(t *testing.T) {
	b, _ := mapTemp(t, 1)
	defer b.Close()
	b.Write(0x13, 0x1ff)
	require.Equal(t, uint16(0xff), b.Read(0x13))
	require.Equal(t, uint16(0xffff), b.Read(uint32(os.Getpagesize())))
}

func TestInvalidWidth(t *testing.T) {
	_, err := Open("/nonexistent", 0, 4096, 4)
	require.Error(t, err)
}

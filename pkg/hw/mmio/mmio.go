// Package mmio maps hardware registers through a device file.
package mmio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"

	fx "github.com/robotalks/genlink/pkg/framework"
	"github.com/robotalks/genlink/pkg/hw"
)

// Bank is a memory-mapped hw.RegisterBank.
type Bank struct {
	// Width is the access width in bytes, 1 or 2.
	// 16-bit registers are big-endian as seen by the 68000.
	Width int

	file *os.File
	mem  []byte
	lock sync.Mutex
}

// Open maps size bytes of path starting at base.
// base must be page aligned.
func Open(path string, base int64, size int, width int) (*Bank, error) {
	if width != 1 && width != 2 {
		return nil, fmt.Errorf("invalid access width %d", width)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s@%x: %v", path, base, err)
	}
	glog.V(2).Infof("mapped %s@%x size %x width %d", path, base, size, width)
	return &Bank{Width: width, file: f, mem: mem}, nil
}

// Read implements hw.RegisterBank.
func (b *Bank) Read(offset uint32) uint16 {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.inRange(offset) {
		return 0xffff
	}
	if b.Width == 1 {
		return uint16(b.mem[offset])
	}
	return binary.BigEndian.Uint16(b.mem[offset:])
}

// Write implements hw.RegisterBank.
func (b *Bank) Write(offset uint32, val uint16) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.inRange(offset) {
		return
	}
	if b.Width == 1 {
		b.mem[offset] = byte(val)
		return
	}
	binary.BigEndian.PutUint16(b.mem[offset:], val)
}

// Close unmaps the registers.
func (b *Bank) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	var errs fx.AggregatedError
	if b.mem != nil {
		errs.Add(unix.Munmap(b.mem))
		b.mem = nil
	}
	if b.file != nil {
		errs.Add(b.file.Close())
		b.file = nil
	}
	return errs.Aggregate()
}

func (b *Bank) inRange(offset uint32) bool {
	if int(offset)+b.Width > len(b.mem) {
		glog.Warning((&hw.BankRangeError{Offset: offset, Size: uint32(len(b.mem))}).Error())
		return false
	}
	return true
}

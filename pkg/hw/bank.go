package hw

import (
	"sort"
	"sync"

	"github.com/golang/glog"
)

// RegisterBank is the capability to access hardware registers.
// Offsets are bank specific; values are at most 16 bits wide.
type RegisterBank interface {
	Read(offset uint32) uint16
	Write(offset uint32, val uint16)
}

// ReadHook computes the value returned for a register read.
// stored is the last value kept for the register.
type ReadHook func(stored uint16) uint16

// WriteHook is called on a register write and returns the value to keep.
type WriteHook func(val uint16) uint16

// Access is a recorded register write.
type Access struct {
	Offset uint32
	Value  uint16
}

type reservation struct {
	read  ReadHook
	write WriteHook
}

type region struct {
	base uint32
	size uint32
	bank RegisterBank
}

// Bank is an in-memory RegisterBank.
// Registers without hooks behave as plain storage. Regions may be mapped
// to delegate a range of offsets to another RegisterBank.
type Bank struct {
	// Trace enables recording of all writes, see Writes.
	Trace bool

	regs     map[uint32]uint16
	reserved map[uint32]reservation
	regions  []region
	writes   []Access
	lock     sync.Mutex
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{
		regs:     make(map[uint32]uint16),
		reserved: make(map[uint32]reservation),
	}
}

// Reserve installs hooks on a register. Either hook may be nil.
func (b *Bank) Reserve(offset uint32, read ReadHook, write WriteHook) *Bank {
	b.lock.Lock()
	b.reserved[offset] = reservation{read: read, write: write}
	b.lock.Unlock()
	return b
}

// MapRegion delegates offsets in [base, base+size) to bank.
// The delegated bank sees offsets relative to base.
func (b *Bank) MapRegion(base, size uint32, bank RegisterBank) *Bank {
	b.lock.Lock()
	b.regions = append(b.regions, region{base: base, size: size, bank: bank})
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].base < b.regions[j].base })
	b.lock.Unlock()
	return b
}

// Read implements RegisterBank.
func (b *Bank) Read(offset uint32) uint16 {
	b.lock.Lock()
	if r := b.regionOf(offset); r != nil {
		b.lock.Unlock()
		return r.bank.Read(offset - r.base)
	}
	stored, res := b.regs[offset], b.reserved[offset]
	b.lock.Unlock()
	if res.read != nil {
		return res.read(stored)
	}
	return stored
}

// Write implements RegisterBank.
func (b *Bank) Write(offset uint32, val uint16) {
	b.lock.Lock()
	if b.Trace {
		b.writes = append(b.writes, Access{Offset: offset, Value: val})
	}
	if r := b.regionOf(offset); r != nil {
		b.lock.Unlock()
		r.bank.Write(offset-r.base, val)
		return
	}
	res := b.reserved[offset]
	b.lock.Unlock()
	if res.write != nil {
		val = res.write(val)
	}
	b.Set(offset, val)
	if glog.V(5) {
		glog.Infof("W %06x <- %04x", offset, val)
	}
}

// Get returns the stored value of a register without invoking hooks.
func (b *Bank) Get(offset uint32) uint16 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.regs[offset]
}

// Set stores a register value without invoking hooks.
func (b *Bank) Set(offset uint32, val uint16) {
	b.lock.Lock()
	b.regs[offset] = val
	b.lock.Unlock()
}

// Update atomically modifies the stored value of a register.
func (b *Bank) Update(offset uint32, fn func(uint16) uint16) uint16 {
	b.lock.Lock()
	defer b.lock.Unlock()
	val := fn(b.regs[offset])
	b.regs[offset] = val
	return val
}

// Writes returns and clears the recorded writes.
func (b *Bank) Writes() []Access {
	b.lock.Lock()
	defer b.lock.Unlock()
	writes := b.writes
	b.writes = nil
	return writes
}

func (b *Bank) regionOf(offset uint32) *region {
	for n := range b.regions {
		r := &b.regions[n]
		if offset >= r.base && offset-r.base < r.size {
			return r
		}
	}
	return nil
}

// Memory is a byte addressed RegisterBank, like a RAM window.
// Only the low byte of a written value is kept.
type Memory struct {
	data []byte
	lock sync.RWMutex
}

// NewMemory creates a Memory of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the size in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Read implements RegisterBank.
func (m *Memory) Read(offset uint32) uint16 {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if int(offset) >= len(m.data) {
		glog.Warning((&BankRangeError{Offset: offset, Size: uint32(len(m.data))}).Error())
		return 0xff
	}
	return uint16(m.data[offset])
}

// Write implements RegisterBank.
func (m *Memory) Write(offset uint32, val uint16) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if int(offset) >= len(m.data) {
		glog.Warning((&BankRangeError{Offset: offset, Size: uint32(len(m.data))}).Error())
		return
	}
	m.data[offset] = byte(val)
}

// Snapshot copies the memory content.
func (m *Memory) Snapshot() []byte {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]byte(nil), m.data...)
}

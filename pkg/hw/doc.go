// Package hw provides register access and interrupt plumbing shared by the
// coprocessor and serial drivers.
//
// Drivers never touch addresses directly. They talk to a RegisterBank which is
// backed either by real memory-mapped I/O (see package mmio) or by a Bank,
// an in-memory register file whose registers may be backed by hooks so that
// simulated hardware can compute status bits on access.
package hw

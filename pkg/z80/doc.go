// Package z80 arbitrates the bus shared between the main CPU and the Z80
// sound coprocessor.
//
// The main CPU must own the Z80 bus before touching Z80 memory. Ownership is
// a request/acknowledge handshake: the request is written to the bus request
// port and the grant is observed by polling the same port. Every access is
//
//	request -> touch Z80 memory -> release -> (optionally) poll the Z80
//
// The handshake never times out on hardware. Arbiter preserves this by
// default and offers a bounded poll so that a silent coprocessor surfaces as
// ErrBusTimeout instead of a hang.
package z80

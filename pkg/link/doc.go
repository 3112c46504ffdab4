// Package link bridges a serial port to a packet transport.
//
// Bytes received by the port are collected from the ring buffer and sent as
// Frames; Frames received from the transport are queued and fed into the
// transmit FIFO whenever it has room.
package link

package serial

import "errors"

var (
	// ErrBufferOverflow indicates a ring buffer write was refused because it was full.
	ErrBufferOverflow = errors.New("ring buffer overflow")
	// ErrBufferUnderflow indicates a ring buffer read while empty.
	ErrBufferUnderflow = errors.New("ring buffer underflow")
	// ErrNotConfigured indicates the driver is used before Init.
	ErrNotConfigured = errors.New("serial port not configured")
	// ErrUnknownPort indicates an unsupported port.
	ErrUnknownPort = errors.New("unknown serial port")
	// ErrNoInterrupts indicates interrupt mode was requested without an interrupt controller.
	ErrNoInterrupts = errors.New("interrupt mode requires an interrupt controller")
	// ErrTxFull indicates the transmit FIFO never drained within the poll bound.
	ErrTxFull = errors.New("transmit fifo full")
)

// Package serial drives the serial function of the controller/expansion
// ports.
//
// Transmit is unbuffered: callers check WriteReady before Write. Receive is
// interrupt driven: the external interrupt drains the hardware receive FIFO
// into a RingBuffer, and the main context consumes the RingBuffer at its own
// pace. The RingBuffer has exactly one writer (the interrupt routine) and one
// reader (the main context) and takes no locks.
package serial

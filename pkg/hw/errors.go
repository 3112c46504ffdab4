package hw

import (
	"errors"
	"fmt"
)

var (
	// ErrPollTimeout indicates a bounded poll exhausted its attempts.
	ErrPollTimeout = errors.New("poll timeout")
)

// BankRangeError reports an access outside of a mapped region.
type BankRangeError struct {
	Offset uint32
	Size   uint32
}

// Error implements error.
func (e *BankRangeError) Error() string {
	return fmt.Sprintf("offset 0x%06x out of range (size 0x%x)", e.Offset, e.Size)
}

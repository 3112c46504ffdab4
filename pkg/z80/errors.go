package z80

import (
	"errors"
	"fmt"
)

var (
	// ErrBusTimeout indicates the Z80 never acknowledged a bus request or release.
	ErrBusTimeout = errors.New("z80 bus timeout")
	// ErrImageTooLarge indicates a program image doesn't fit in Z80 RAM.
	ErrImageTooLarge = errors.New("program image exceeds z80 ram")
)

// Upload stages.
const (
	StageValidate = "validate"
	StageRequest  = "request"
	StageReady    = "ready"
)

// UploadError wraps a failure of UploadProgram with the stage it happened.
type UploadError struct {
	Stage string
	Err   error
}

// Error implements error.
func (e *UploadError) Error() string {
	return fmt.Sprintf("z80 upload %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *UploadError) Unwrap() error {
	return e.Err
}

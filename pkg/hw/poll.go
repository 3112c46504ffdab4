package hw

import "context"

// Unbounded is the attempts value to poll forever, as the hardware does.
const Unbounded = 0

// PollUntil evaluates pred until it returns true.
// With attempts > 0, ErrPollTimeout is returned after that many failed
// evaluations. The poll never yields the CPU except to check ctx.
func PollUntil(ctx context.Context, pred func() bool, attempts int) error {
	for n := 0; attempts == Unbounded || n < attempts; n++ {
		if pred() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return ErrPollTimeout
}

package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Controller is polled once per loop iteration from the main context.
// It must not block.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current control iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// PostRun injects one-shot hooks after the controllers
	// of the current priority level.
	PostRun(hooks ...Controller)

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefined priority levels.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvReceive collects received bytes.
	PrLvReceive = PrLvHigh
	// PrLvProcess handles collected data.
	PrLvProcess = PrLvNormal
	// PrLvTransmit feeds the transmitter.
	PrLvTransmit = PrLvLow
)

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// PostRunAt injects one-shot post-run controller hooks at
	// specified priority level.
	PostRunAt(priorityLevel int, controllers ...Controller)
	// TriggerNext schedules the next iteration to be executed
	// immediately after the current iteration.
	TriggerNext()
}

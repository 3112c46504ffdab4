package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop is the main execution context. It polls controllers by priority
// at a fixed interval and runs Runnables alongside.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels]controllerList
	runners     []Runnable
	wakeUpCh    chan struct{}
	iterations  uint64
	lock        sync.Mutex
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type controllerList struct {
	controllers []Controller
	postHooks   []Controller
	lock        sync.Mutex
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: 10 * time.Millisecond, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at a priority level.
// Controllers which are also Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	lst := &l.controllers[priorityLevel]
	lst.controllers = append(lst.controllers, ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementations.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := NewRunnerWith(ctx).Go(l.runners...)
	interval := l.Interval
	if interval == 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case err := <-runner.errCh:
			// a runner stopped on its own, stop everything else
			runner.pending--
			cancel()
			var errs AggregatedError
			if err != context.Canceled {
				errs.Add(err)
			}
			errs.Add(runner.Wait())
			if err := errs.Aggregate(); err != nil {
				return err
			}
			return context.Canceled
		case <-ticker.C:
			l.RunOnce(ctx)
		case <-l.wakeUpCh:
			l.RunOnce(ctx)
		}
	}
}

// RunOnce runs one iteration of all controllers.
func (l *Loop) RunOnce(ctx context.Context) {
	iter := &loopIteration{Loop: l, ctx: ctx, time: time.Now()}
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.controllers[i].run(iter)
	}
	l.lock.Lock()
	l.iterations++
	l.lock.Unlock()
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.iterations
}

// PostRunAt implements LoopControl.
func (l *Loop) PostRunAt(priorityLevel int, hooks ...Controller) {
	lst := &l.controllers[priorityLevel]
	lst.lock.Lock()
	lst.postHooks = append(lst.postHooks, hooks...)
	lst.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) PostRun(hooks ...Controller) {
	t.PostRunAt(t.priorityLevel, hooks...)
}

func (c *controllerList) run(iter *loopIteration) {
	runControllers(iter, c.controllers)
	c.lock.Lock()
	hooks := c.postHooks
	c.postHooks = nil
	c.lock.Unlock()
	runControllers(iter, hooks)
}

func runControllers(iter *loopIteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			glog.Errorf("controller error: %v", err)
		}
	}
}

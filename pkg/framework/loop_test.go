package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopPriorityOrder(t *testing.T) {
	var order []int
	loop := NewLoop()
	for _, lv := range []int{PrLvTransmit, PrLvReceive, PrLvProcess} {
		lv := lv
		loop.AddController(lv, ControlFunc(func(ctx ControlContext) error {
			order = append(order, ctx.PriorityLevel())
			if lv == PrLvReceive {
				ctx.PostRun(ControlFunc(func(ctx ControlContext) error {
					order = append(order, -ctx.PriorityLevel())
					return nil
				}))
			}
			return nil
		}))
	}
	loop.RunOnce(context.Background())
	require.Equal(t, []int{PrLvReceive, -PrLvReceive, PrLvProcess, PrLvTransmit}, order)
	require.Equal(t, uint64(1), loop.Iterations())
}

func TestLoopStopsOnRunnerError(t *testing.T) {
	failure := errors.New("transport closed")
	loop := NewLoop()
	loop.Interval = time.Millisecond
	loop.AddRunnable(
		NamedRun("transport", RunFunc(func(ctx context.Context) error { return failure })),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()
	select {
	case err := <-errCh:
		require.Error(t, err)
		agg, ok := err.(*AggregatedError)
		require.True(t, ok)
		require.Len(t, agg.Errors, 1)
		require.True(t, errors.Is(err, failure))
		var rerr *RunnerError
		require.True(t, errors.As(err, &rerr))
		require.Equal(t, "transport", rerr.Name)
		require.Equal(t, "runner transport: transport closed", err.Error())
	case <-time.After(time.Second):
		t.Fatal("loop didn't stop")
	}
}

func TestLoopCancel(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 1)
	loop.AddController(PrLvNormal, ControlFunc(func(ControlContext) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	}))
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	<-ticks
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"), nil, errors.New("b"))
	require.Len(t, errs.Errors, 2)
	require.Equal(t, "Multiple errors:\na\nb", errs.Aggregate().Error())

	var single AggregatedError
	single.Add(context.DeadlineExceeded)
	require.Equal(t, context.DeadlineExceeded.Error(), single.Error())
	require.True(t, errors.Is(single.Aggregate(), context.DeadlineExceeded))
	require.False(t, errors.Is(errs.Aggregate(), context.DeadlineExceeded))
}

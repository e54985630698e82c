package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/logger"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	t.Parallel()

	b := New(logger.Nop())
	var calls int32

	for i := 0; i < 3; i++ {
		b.Subscribe(events.TypePipelineStarted, func(ctx context.Context, ev events.Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}

	b.Publish(context.Background(), events.PipelineStarted{PipelineID: "p1"})
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishWaitsForAllHandlers(t *testing.T) {
	t.Parallel()

	b := New(logger.Nop())
	var done int32

	for i := 0; i < 4; i++ {
		b.Subscribe(events.TypeNodeCompleted, func(ctx context.Context, ev events.Event) error {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}

	b.Publish(context.Background(), events.NodeCompleted{PipelineID: "p1", NodeID: "a"})

	// All handlers must have settled by the time Publish returns.
	require.Equal(t, int32(4), atomic.LoadInt32(&done))
}

func TestHandlerFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	b := New(logger.Nop())
	var succeeded int32

	b.Subscribe(events.TypePipelineError, func(ctx context.Context, ev events.Event) error {
		return errors.New("handler exploded")
	})
	b.Subscribe(events.TypePipelineError, func(ctx context.Context, ev events.Event) error {
		panic("handler panicked")
	})
	b.Subscribe(events.TypePipelineError, func(ctx context.Context, ev events.Event) error {
		atomic.AddInt32(&succeeded, 1)
		return nil
	})

	require.NotPanics(t, func() {
		b.Publish(context.Background(), events.PipelineError{PipelineID: "p1", ErrorMessage: "x"})
	})
	require.Equal(t, int32(1), atomic.LoadInt32(&succeeded))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := New(logger.Nop())
	var calls int32

	sub := b.Subscribe(events.TypeDeviceConnected, func(ctx context.Context, ev events.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	b.Publish(context.Background(), events.DeviceConnected{DeviceID: "d1"})
	sub.Unsubscribe()
	b.Publish(context.Background(), events.DeviceConnected{DeviceID: "d1"})

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Equal(t, 0, b.SubscriberCount(events.TypeDeviceConnected))
}

func TestSubscribeAllCoversEveryType(t *testing.T) {
	t.Parallel()

	b := New(logger.Nop())
	var mu sync.Mutex
	seen := map[string]int{}

	sub := b.SubscribeAll(events.AllTypes, func(ctx context.Context, ev events.Event) error {
		mu.Lock()
		seen[ev.EventType()]++
		mu.Unlock()
		return nil
	})
	defer sub.Unsubscribe()

	b.Publish(context.Background(), events.PipelineStarted{PipelineID: "p1"})
	b.Publish(context.Background(), events.DeviceError{DeviceID: "d1", ErrorMessage: "x"})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, seen[events.TypePipelineStarted])
	require.Equal(t, 1, seen[events.TypeDeviceError])
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	b := New(logger.Nop())
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe(events.TypeNodeExecuting, func(ctx context.Context, ev events.Event) error { return nil })
			b.Publish(context.Background(), events.NodeExecuting{PipelineID: "p1", NodeID: "n"})
			sub.Unsubscribe()
		}()
	}

	wg.Wait()
	require.Equal(t, 0, b.SubscriberCount(events.TypeNodeExecuting))
}

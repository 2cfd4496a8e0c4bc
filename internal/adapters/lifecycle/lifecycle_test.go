//go:build !windows

package lifecycle

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResumeNotifiesSubscribers(t *testing.T) {
	t.Parallel()

	l := NewSignalLifecycle(nil)
	var first, second atomic.Int32
	l.OnForegroundResume(func() { first.Add(1) })
	unsubscribe := l.OnForegroundResume(func() { second.Add(1) })

	l.Resume()
	unsubscribe()
	unsubscribe()
	l.Resume()

	assert.Equal(t, int32(2), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestWatcherDeliversSignalsAsResume(t *testing.T) {
	t.Parallel()

	l := NewSignalLifecycle(nil, syscall.SIGUSR2)
	var calls atomic.Int32
	l.OnForegroundResume(func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)
	defer l.Close()

	l.events <- syscall.SIGUSR2

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWatcherStopsOnClose(t *testing.T) {
	t.Parallel()

	l := NewSignalLifecycle(nil, syscall.SIGUSR2)
	var calls atomic.Int32
	l.OnForegroundResume(func() { calls.Add(1) })

	l.Start(context.Background())
	l.Close()
	l.Close()
	<-l.stopped

	select {
	case l.events <- syscall.SIGUSR2:
	default:
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherUnregistersSignalsWhenContextEnds(t *testing.T) {
	t.Parallel()

	l := NewSignalLifecycle(nil, syscall.SIGUSR2)
	var stops atomic.Int32
	l.stopNotify = func(chan<- os.Signal) { stops.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	cancel()
	<-l.stopped

	assert.Equal(t, int32(1), stops.Load())

	l.Close()
	assert.Equal(t, int32(1), stops.Load())
}

func TestNilHandlerIsIgnored(t *testing.T) {
	t.Parallel()

	l := NewSignalLifecycle(nil)
	unsubscribe := l.OnForegroundResume(nil)
	unsubscribe()
	l.Resume()
}

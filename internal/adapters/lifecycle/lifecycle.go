package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/bnema/winspay-gate/internal/logging"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/sirupsen/logrus"
)

var _ ports.Lifecycle = (*SignalLifecycle)(nil)

// SignalLifecycle turns process signals into foreground-resume
// notifications. A terminal job resumed with fg delivers SIGCONT, and
// SIGUSR1 lets another process ask for a re-check. Handlers run one at a
// time on the watcher goroutine.
type SignalLifecycle struct {
	log     logrus.FieldLogger
	signals []os.Signal

	mu       sync.Mutex
	handlers map[uint64]func()
	nextID   uint64

	events      chan os.Signal
	stopNotify  func(chan<- os.Signal)
	startOnce   sync.Once
	releaseOnce sync.Once
	closeOnce   sync.Once
	done        chan struct{}
	stopped     chan struct{}
}

func NewSignalLifecycle(log logrus.FieldLogger, signals ...os.Signal) *SignalLifecycle {
	if log == nil {
		log = logging.Nop()
	}
	if len(signals) == 0 {
		signals = DefaultResumeSignals()
	}

	return &SignalLifecycle{
		log:        log.WithField("component", "lifecycle"),
		signals:    signals,
		handlers:   make(map[uint64]func()),
		events:     make(chan os.Signal, 4),
		stopNotify: signal.Stop,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start begins watching signals until ctx is done or Close is called. Either
// one unregisters the signal handlers.
func (l *SignalLifecycle) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		if len(l.signals) > 0 {
			signal.Notify(l.events, l.signals...)
		}
		go l.watch(ctx)
	})
}

func (l *SignalLifecycle) Close() {
	l.closeOnce.Do(func() {
		l.release()
		close(l.done)
	})
}

func (l *SignalLifecycle) release() {
	l.releaseOnce.Do(func() {
		l.stopNotify(l.events)
	})
}

func (l *SignalLifecycle) OnForegroundResume(handler func()) ports.Unsubscribe {
	if handler == nil {
		return func() {}
	}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = handler
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.handlers, id)
			l.mu.Unlock()
		})
	}
}

// Resume notifies handlers as if the process had come back to the
// foreground.
func (l *SignalLifecycle) Resume() {
	l.mu.Lock()
	handlers := make([]func(), 0, len(l.handlers))
	for _, handler := range l.handlers {
		handlers = append(handlers, handler)
	}
	l.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}

func (l *SignalLifecycle) watch(ctx context.Context) {
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			l.release()
			return
		case <-l.done:
			return
		case sig := <-l.events:
			l.log.WithField("signal", sig.String()).Debug("foreground resume")
			l.Resume()
		}
	}
}

package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierFunc func(ctx context.Context, msg Message) error

func (f notifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	var mu sync.Mutex
	var got []string
	notifier := notifierFunc(func(_ context.Context, msg Message) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		got = append(got, msg.Username)
		mu.Unlock()
		return nil
	})

	d := NewDispatcher(Config{MaxConcurrent: 2, Logger: quietLogger()}, notifier)
	for _, name := range []string{"a", "b", "c", "d"} {
		assert.True(t, d.Dispatch(Message{Kind: KindWelcome, Username: name}))
	}
	require.NoError(t, d.Shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, got)
	assert.False(t, d.Dispatch(Message{Username: "late"}))
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	notifier := notifierFunc(func(context.Context, Message) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	d := NewDispatcher(Config{MaxConcurrent: 2, Logger: quietLogger()}, notifier)
	for i := 0; i < 8; i++ {
		d.Dispatch(Message{Username: "u"})
	}
	require.NoError(t, d.Shutdown(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var mu sync.Mutex
	var got []string
	notifier := notifierFunc(func(_ context.Context, msg Message) error {
		started <- struct{}{}
		<-release
		mu.Lock()
		got = append(got, msg.Username)
		mu.Unlock()
		return nil
	})

	d := NewDispatcher(Config{MaxConcurrent: 1, QueueSize: 1, Logger: quietLogger()}, notifier)
	require.True(t, d.Dispatch(Message{Username: "first"}))
	<-started

	assert.True(t, d.Dispatch(Message{Username: "queued"}))
	assert.False(t, d.Dispatch(Message{Username: "overflow"}))

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"first", "queued"}, got)
}

func TestDispatcherSurvivesFailures(t *testing.T) {
	var calls atomic.Int32
	notifier := notifierFunc(func(_ context.Context, msg Message) error {
		calls.Add(1)
		if msg.Username == "panic" {
			panic("smtp exploded")
		}
		return errors.New("mailbox full")
	})

	d := NewDispatcher(Config{Logger: quietLogger()}, notifier)
	d.Dispatch(Message{Username: "panic"})
	d.Dispatch(Message{Username: "error"})
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcherTimeout(t *testing.T) {
	errCh := make(chan error, 1)
	notifier := notifierFunc(func(ctx context.Context, _ Message) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	})

	d := NewDispatcher(Config{Timeout: 20 * time.Millisecond, Logger: quietLogger()}, notifier)
	d.Dispatch(Message{Username: "slow"})
	require.NoError(t, d.Shutdown(context.Background()))
	assert.ErrorIs(t, <-errCh, context.DeadlineExceeded)
}

func TestDispatcherShutdownDeadline(t *testing.T) {
	notifier := notifierFunc(func(ctx context.Context, _ Message) error {
		<-ctx.Done()
		return ctx.Err()
	})

	d := NewDispatcher(Config{Timeout: time.Minute, Logger: quietLogger()}, notifier)
	d.Dispatch(Message{Username: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	n := NewLogNotifier(logger)
	require.NoError(t, n.Notify(context.Background(), Message{Kind: KindWelcome, Username: "alice", Email: "a@example.com"}))
	assert.Contains(t, buf.String(), `"username":"alice"`)
	assert.Contains(t, buf.String(), `"kind":"welcome"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, Message{}), context.Canceled)
}

package dispatcher

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu   sync.Mutex
	logs []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, "DEBUG: "+msg)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, "INFO: "+msg)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, "ERROR: "+msg)
}

func (l *testLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("/initialpose", func(e Event) (any, error) {
		return e.Payload, nil
	})

	result, err := d.Dispatch(Event{Topic: "/initialpose", Payload: "pose"})
	require.NoError(t, err)
	assert.Equal(t, "pose", result)
}

func TestDispatcher_UnknownTopic(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Topic: "/nowhere"})
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register("/initialpose", func(e Event) (any, error) {
		count.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Topic: "/initialpose", Payload: i})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}

	wg.Wait()
	assert.Equal(t, int32(3), count.Load())
}

func TestDispatcher_BufferedPreservesOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(5)

	d.Register("/goal", func(e Event) (any, error) {
		mu.Lock()
		got = append(got, e.Payload.(int))
		mu.Unlock()
		wg.Done()
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		_, err := d.Dispatch(Event{Topic: "/goal", Payload: i})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestDispatcher_BufferedLogsHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	done := make(chan struct{})
	d.Register("/initialpose", func(e Event) (any, error) {
		defer close(done)
		return nil, errors.New("connection closed")
	}, Buffered(4))

	result, err := d.Dispatch(Event{Topic: "/initialpose"})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)
	<-done

	assert.Eventually(t, func() bool {
		for _, line := range logger.lines() {
			if line == "ERROR: queued event failed" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	d.Register("/slow", func(e Event) (any, error) {
		once.Do(func() { close(started) })
		<-release
		return nil, nil
	}, Buffered(2))

	// first event occupies the worker
	_, err := d.Dispatch(Event{Topic: "/slow"})
	require.NoError(t, err)
	<-started

	// fill the queue
	_, err = d.Dispatch(Event{Topic: "/slow"})
	require.NoError(t, err)
	_, err = d.Dispatch(Event{Topic: "/slow"})
	require.NoError(t, err)

	_, err = d.Dispatch(Event{Topic: "/slow"})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	d.Register("/slow", func(e Event) (any, error) {
		once.Do(func() { close(started) })
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	_, err := d.Dispatch(Event{Topic: "/slow"})
	require.NoError(t, err)
	<-started
	_, err = d.Dispatch(Event{Topic: "/slow"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(Event{Topic: "/slow"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not unblock")
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("/initialpose", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(Event{Topic: "/initialpose"})
	require.NoError(t, err)

	assert.Equal(t, []string{"DEBUG: handling event", "DEBUG: event complete"}, logger.lines())
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("/initialpose", func(e Event) (any, error) {
		return nil, errors.New("not connected")
	}, Logged())

	_, err := d.Dispatch(Event{Topic: "/initialpose"})
	require.Error(t, err)

	lines := logger.lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "ERROR: event failed", lines[1])
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	assert.False(t, d.HasHandler("/initialpose"))
	d.Register("/initialpose", func(e Event) (any, error) { return nil, nil })
	assert.True(t, d.HasHandler("/initialpose"))
}

func TestDispatcher_Unregister(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var count atomic.Int32
	d.Register("/initialpose", func(e Event) (any, error) {
		count.Add(1)
		return nil, nil
	}, Buffered(4))

	assert.True(t, d.Unregister("/initialpose"))
	assert.False(t, d.Unregister("/initialpose"))
	assert.False(t, d.HasHandler("/initialpose"))

	_, err := d.Dispatch(Event{Topic: "/initialpose"})
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestDispatcher_RegisterReplaces(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("/initialpose", func(e Event) (any, error) { return "first", nil })
	d.Register("/initialpose", func(e Event) (any, error) { return "second", nil })

	result, err := d.Dispatch(Event{Topic: "/initialpose"})
	require.NoError(t, err)
	assert.Equal(t, "second", result)
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var wg sync.WaitGroup
	wg.Add(1)

	d.Register("/initialpose", func(e Event) (any, error) {
		wg.Done()
		return nil, nil
	}, Buffered(10), Logged())

	result, err := d.Dispatch(Event{Topic: "/initialpose"})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)

	wg.Wait()
	assert.Contains(t, logger.lines(), "DEBUG: handling event")
}

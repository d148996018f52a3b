package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 8, Workers: 2})
	defer d.Close()

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, ran)
	assert.Equal(t, uint64(0), d.ErrorCount())
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	defer d.Close()

	block := make(chan struct{})
	release := make(chan struct{})
	_ = d.Enqueue(context.Background(), "a", "", func() error {
		close(block)
		<-release
		return nil
	})
	<-block

	// the worker is busy, so the queue can only hold one more job
	_ = d.Enqueue(context.Background(), "b", "", func() error { return nil })
	err := d.Enqueue(context.Background(), "c", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
}

func TestDispatcherClosedQueue(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "a", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{
		QueueSize:    4,
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		MaxDuration:  time.Second,
	})
	defer d.Close()

	transient := &net.OpError{Op: "dial", Err: errors.New("connection refused")}

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return transient
		}
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not recover within the retry budget")
	}
	assert.Equal(t, uint64(0), d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 4, Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})

	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		return errors.New("telegram: Bad Request (400)")
	}))
	d.Close()

	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"dns", &net.DNSError{Name: "api.telegram.org"}, "dns"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, "dial"},
		{"wrapped timeout", &url.Error{Op: "Get", URL: "https://api.telegram.org", Err: context.DeadlineExceeded}, "timeout"},
		{"http 5xx", errors.New("telegram: internal error (502)"), "http_5xx"},
		{"http 4xx", errors.New("telegram: Bad Request (400)"), "http_4xx"},
		{"plain", errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, classifyError(tc.err))
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := fmt.Errorf("Post %q: EOF",
		"https://api.telegram.org/bot1234567:AAH-secret_token/sendMessage")
	got := sanitizeErrorMessage(err)
	assert.NotContains(t, got, "AAH-secret_token")
	assert.Contains(t, got, "bot<redacted>")
}

package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	d := NewDispatcher(opts)
	t.Cleanup(d.Close)
	return d
}

// failing returns a run func that fails with errs in order, then succeeds.
func failing(calls *atomic.Int32, errs ...error) func() error {
	return func() error {
		n := int(calls.Add(1))
		if n <= len(errs) {
			return errs[n-1]
		}
		return nil
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	d := newTestDispatcher(t, Options{MaxRetries: 3})
	var calls atomic.Int32

	err := d.Do(context.Background(), "send_text", "sendMessage", failing(&calls, timeoutErr{}, timeoutErr{}))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}
	if d.SentCount() != 1 || d.ErrorCount() != 0 {
		t.Fatalf("sent=%d errs=%d", d.SentCount(), d.ErrorCount())
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	d := newTestDispatcher(t, Options{MaxRetries: 2})
	var calls atomic.Int32

	err := d.Do(context.Background(), "send_text", "sendMessage", failing(&calls, timeoutErr{}, timeoutErr{}, timeoutErr{}, timeoutErr{}))
	if !errors.As(err, new(timeoutErr)) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}
	if d.SentCount() != 0 || d.ErrorCount() != 1 {
		t.Fatalf("sent=%d errs=%d", d.SentCount(), d.ErrorCount())
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	d := newTestDispatcher(t, Options{MaxRetries: 3})
	var calls atomic.Int32
	apiErr := tele.NewError(400, "Bad Request: chat not found")

	err := d.Do(context.Background(), "send_text", "sendMessage", failing(&calls, apiErr))
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx retried: calls=%d", calls.Load())
	}
	if d.ErrorCount() != 1 || d.SentCount() != 0 {
		t.Fatalf("sent=%d errs=%d", d.SentCount(), d.ErrorCount())
	}
	if kind := ClassifyError(err); kind != "http_4xx" {
		t.Fatalf("kind=%q", kind)
	}
}

func TestDoWaitsForFloodControl(t *testing.T) {
	d := newTestDispatcher(t, Options{MaxRetries: 1, RetryBackoff: time.Hour})
	var calls atomic.Int32

	start := time.Now()
	err := d.Do(context.Background(), "send_photo", "sendPhoto", failing(&calls, tele.FloodError{RetryAfter: 1}))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if took := time.Since(start); took < time.Second {
		t.Fatalf("retried after %v, before the requested wait", took)
	}
	if calls.Load() != 2 || d.SentCount() != 1 {
		t.Fatalf("calls=%d sent=%d", calls.Load(), d.SentCount())
	}
}

func TestDoFloodWaitBoundedByMaxDuration(t *testing.T) {
	d := newTestDispatcher(t, Options{MaxRetries: 3, MaxDuration: 50 * time.Millisecond})
	var calls atomic.Int32

	err := d.Do(context.Background(), "send_text", "sendMessage", failing(&calls, tele.FloodError{RetryAfter: 30}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if calls.Load() != 1 || d.ErrorCount() != 1 {
		t.Fatalf("calls=%d errs=%d", calls.Load(), d.ErrorCount())
	}
}

func TestDoNilRun(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	if err := d.Do(context.Background(), "send_text", "", nil); err == nil {
		t.Fatal("expected error for nil run")
	}
}

func TestEnqueueRunsAndCloses(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, RetryBackoff: time.Millisecond})
	done := make(chan struct{})
	if err := d.Enqueue(context.Background(), "send_text", "sendMessage", func() error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
	d.Close()
	if d.SentCount() != 1 {
		t.Fatalf("sent=%d", d.SentCount())
	}
	if err := d.Enqueue(context.Background(), "send_text", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestSanitizeErrorRedactsToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": EOF`)
	got := SanitizeError(err)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("got %q", got)
	}
}

package netutil

import (
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type wrapped struct{ err error }

func (w wrapped) Error() string { return "send failed" }
func (w wrapped) Unwrap() error { return w.err }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("bad request"), want: false},
		{name: "timeout", err: timeoutErr{}, want: true},
		{name: "dial", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "read", err: &net.OpError{Op: "read", Err: errors.New("reset")}, want: false},
		{name: "url timeout", err: &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, want: true},
		{name: "flood", err: wrapped{tele.FloodError{RetryAfter: 3}}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err); got != tc.want {
				t.Fatalf("ShouldRetry = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	d, ok := RetryAfter(tele.FloodError{RetryAfter: 2})
	if !ok || d != 2*time.Second {
		t.Fatalf("RetryAfter = %v %v, want 2s true", d, ok)
	}
	if _, ok := RetryAfter(errors.New("nope")); ok {
		t.Fatal("plain error reported as flood")
	}
}

package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("api call failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("invalid input: missing field")
	if IsTransient(err) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range patterns {
		err := errors.New(p)
		if !IsTransient(err) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestIsRateLimited_StatusCodes(t *testing.T) {
	for _, code := range []int{429, 529} {
		err := NewTransientError(errors.New("limited"), code)
		if !IsRateLimited(err) {
			t.Errorf("expected status %d to count as rate limited", code)
		}
	}
	err := NewTransientError(errors.New("bad gateway"), 502)
	if IsRateLimited(err) {
		t.Error("502 should not count as rate limited")
	}
}

func TestIsRateLimited_MessageHeuristics(t *testing.T) {
	limited := []string{
		"429 from upstream",
		"rate limit exceeded",
		"rate_limit_error",
		"too many requests",
		"daily quota exhausted",
		"overloaded_error",
	}
	for _, msg := range limited {
		if !IsRateLimited(errors.New(msg)) {
			t.Errorf("expected %q to count as rate limited", msg)
		}
	}
	if IsRateLimited(errors.New("invalid api key")) {
		t.Error("auth failure should not count as rate limited")
	}
	if IsRateLimited(nil) {
		t.Error("nil error should not count as rate limited")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	transient := []int{408, 429, 500, 502, 503, 504}
	for _, code := range transient {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	permanent := []int{200, 204, 301, 400, 401, 403, 404, 422}
	for _, code := range permanent {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be permanent", code)
		}
	}
}

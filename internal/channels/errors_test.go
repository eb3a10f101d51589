package channels

import "testing"

func TestNotFoundErrorMessage(t *testing.T) {
	err := NewNotFoundError("discord-1")
	if err.Error() != "channel not found: discord-1" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if err.IsRetriable() {
		t.Fatal("not-found should be terminal")
	}
}

func TestRateLimitRetriableWithDelay(t *testing.T) {
	err := NewRateLimitError(30)
	if !err.IsRetriable() {
		t.Fatal("rate limit should be retriable")
	}
	delay, ok := err.RetryDelay()
	if !ok || delay.Seconds() != 30 {
		t.Fatalf("expected 30s retry delay, got %v (ok=%v)", delay, ok)
	}
}

func TestTimeoutRetriableDefaultDelay(t *testing.T) {
	err := NewTimeoutError()
	if !err.IsRetriable() {
		t.Fatal("timeout should be retriable")
	}
	delay, ok := err.RetryDelay()
	if !ok || delay.Seconds() != 1 {
		t.Fatalf("expected 1s default delay, got %v (ok=%v)", delay, ok)
	}
}

func TestTerminalKindsAreNotRetriable(t *testing.T) {
	terminal := []*ChannelError{
		NewAlreadyExistsError("x"),
		NewNotConnectedError("x"),
		NewRoutingError("no match"),
		NewDeliveryError("queue full"),
		NewChannelSpecificError("discord", "webhook rejected"),
	}
	for _, err := range terminal {
		if err.IsRetriable() {
			t.Fatalf("kind %v should not be retriable", err.Kind)
		}
		if _, ok := err.RetryDelay(); ok {
			t.Fatalf("kind %v should not carry a retry delay", err.Kind)
		}
	}
}

func TestIsRetriableErrHandlesNonChannelError(t *testing.T) {
	if IsRetriableErr(errPlain("boom")) {
		t.Fatal("a plain error should never be treated as retriable")
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

package checkout

import (
	"testing"
	"time"
)

func TestDefaultTimeoutsValid(t *testing.T) {
	if err := DefaultTimeouts.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestTimeoutConfigWith(t *testing.T) {
	tc := DefaultTimeouts.
		WithBackendTimeout(5 * time.Second).
		WithSubmitTimeout(time.Minute).
		WithFinalityTimeout(30 * time.Second).
		WithFinalityPollInterval(time.Second)

	if tc.BackendTimeout != 5*time.Second || tc.SubmitTimeout != time.Minute {
		t.Errorf("unexpected config: %+v", tc)
	}
	if tc.FinalityTimeout != 30*time.Second || tc.FinalityPollInterval != time.Second {
		t.Errorf("unexpected config: %+v", tc)
	}

	// The original is untouched.
	if DefaultTimeouts.BackendTimeout != 10*time.Second {
		t.Error("With* must not mutate the receiver")
	}
}

func TestTimeoutConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		tc   TimeoutConfig
	}{
		{"zero backend", DefaultTimeouts.WithBackendTimeout(0)},
		{"negative submit", DefaultTimeouts.WithSubmitTimeout(-time.Second)},
		{"zero finality", DefaultTimeouts.WithFinalityTimeout(0)},
		{"zero poll", DefaultTimeouts.WithFinalityPollInterval(0)},
		{"poll above ceiling", DefaultTimeouts.WithFinalityTimeout(time.Second).WithFinalityPollInterval(2 * time.Second)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.tc.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

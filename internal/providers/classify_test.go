package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"http 429", &StatusError{Provider: "gemini", Status: 429, Message: "slow down"}, OutcomeRetryable},
		{"http 500", &StatusError{Provider: "openai", Status: 500, Message: "boom"}, OutcomeRetryable},
		{"http 503", &StatusError{Provider: "veo", Status: 503}, OutcomeRetryable},
		{"http 400", &StatusError{Provider: "gemini", Status: 400, Message: "bad field"}, OutcomeFatal},
		{"quota text", errors.New("RESOURCE_EXHAUSTED: quota exceeded for model"), OutcomeRetryable},
		{"rate limit text", errors.New("vendor says: Rate Limit reached"), OutcomeRetryable},
		{"overloaded text", errors.New("the model is overloaded"), OutcomeRetryable},
		{"poll timeout", fmt.Errorf("veo: job timed out after 120 poll attempts"), OutcomeRetryable},
		{"malformed request", errors.New("unsupported content in request"), OutcomeFatal},
		{"wrapped status", fmt.Errorf("attempt failed: %w", &StatusError{Provider: "qwen", Status: 502}), OutcomeRetryable},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Provider: "gemini", Status: 429, Message: "quota exceeded"}
	if err.Error() != "gemini: status 429: quota exceeded" {
		t.Fatalf("Error() = %q", err.Error())
	}
	bare := &StatusError{Provider: "veo", Status: 503}
	if bare.Error() != "veo: status 503" {
		t.Fatalf("Error() = %q", bare.Error())
	}
}

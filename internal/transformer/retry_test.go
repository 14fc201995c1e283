package transformer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type scriptedService struct {
	name  string
	calls int
	// script returns the response for call n (0-based).
	script func(n int) (*Result, error)
}

func (s *scriptedService) Name() string { return s.name }

func (s *scriptedService) Transform(ctx context.Context, cfg ServiceConfig, req Request) (*Result, error) {
	n := s.calls
	s.calls++
	return s.script(n)
}

func (s *scriptedService) IsAvailable(ctx context.Context) error { return nil }

func testPolicy(sleeps *[]time.Duration) Policy {
	return Policy{
		MaxAttempts:  3,
		RetryDelay:   2 * time.Second,
		Cooldown:     30 * time.Second,
		MaxCooldowns: 4,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
	}
}

func TestPolicy_SucceedsAfterRetryableFailures(t *testing.T) {
	svc := &scriptedService{name: "mock", script: func(n int) (*Result, error) {
		if n < 2 {
			return nil, &StatusError{Code: http.StatusInternalServerError}
		}
		return &Result{Text: "ok"}, nil
	}}

	var sleeps []time.Duration
	res, err := testPolicy(&sleeps).Do(context.Background(), svc, ServiceConfig{}, Request{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("unexpected result: %q", res.Text)
	}
	if svc.calls != 3 {
		t.Errorf("expected 3 calls, got %d", svc.calls)
	}
	for _, d := range sleeps {
		if d != 2*time.Second {
			t.Errorf("expected retry delay, got %v", d)
		}
	}
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	svc := &scriptedService{name: "mock", script: func(n int) (*Result, error) {
		return nil, ErrEmptyResponse
	}}

	var sleeps []time.Duration
	_, err := testPolicy(&sleeps).Do(context.Background(), svc, ServiceConfig{}, Request{Text: "x"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected wrapped ErrEmptyResponse, got %v", err)
	}
	if svc.calls != 3 {
		t.Errorf("expected exactly MaxAttempts calls, got %d", svc.calls)
	}
}

func TestPolicy_RateLimitDoesNotConsumeAttempt(t *testing.T) {
	// Two rate-limit rounds, then two ordinary failures, then success:
	// possible only if 429s leave the attempt budget untouched.
	svc := &scriptedService{name: "mock", script: func(n int) (*Result, error) {
		switch {
		case n < 2:
			return nil, &StatusError{Code: http.StatusTooManyRequests}
		case n < 4:
			return nil, &StatusError{Code: http.StatusBadGateway}
		default:
			return &Result{Text: "ok"}, nil
		}
	}}

	var sleeps []time.Duration
	res, err := testPolicy(&sleeps).Do(context.Background(), svc, ServiceConfig{}, Request{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("unexpected result: %q", res.Text)
	}

	var cooldowns, delays int
	for _, d := range sleeps {
		switch d {
		case 30 * time.Second:
			cooldowns++
		case 2 * time.Second:
			delays++
		}
	}
	if cooldowns != 2 || delays != 2 {
		t.Errorf("expected 2 cooldowns and 2 delays, got %d and %d", cooldowns, delays)
	}
}

func TestPolicy_PersistentRateLimitEventuallyGivesUp(t *testing.T) {
	svc := &scriptedService{name: "mock", script: func(n int) (*Result, error) {
		return nil, &StatusError{Code: http.StatusTooManyRequests}
	}}

	var sleeps []time.Duration
	_, err := testPolicy(&sleeps).Do(context.Background(), svc, ServiceConfig{}, Request{Text: "x"})
	if err == nil {
		t.Fatal("expected error after exceeding cooldown bound")
	}
	if svc.calls != 5 {
		t.Errorf("expected MaxCooldowns+1 calls, got %d", svc.calls)
	}
}

func TestPolicy_FatalErrorAbortsImmediately(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		svc := &scriptedService{name: "mock", script: func(n int) (*Result, error) {
			return nil, &StatusError{Code: code}
		}}

		var sleeps []time.Duration
		_, err := testPolicy(&sleeps).Do(context.Background(), svc, ServiceConfig{}, Request{Text: "x"})
		if err == nil {
			t.Fatalf("status %d: expected error", code)
		}
		if svc.calls != 1 {
			t.Errorf("status %d: expected no retries, got %d calls", code, svc.calls)
		}
		if len(sleeps) != 0 {
			t.Errorf("status %d: expected no sleeps, got %v", code, sleeps)
		}
	}
}

func TestPolicy_CancelledContext(t *testing.T) {
	svc := &scriptedService{name: "mock", script: func(n int) (*Result, error) {
		return &Result{Text: "ok"}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testPolicy(&[]time.Duration{}).Do(ctx, svc, ServiceConfig{}, Request{Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if svc.calls != 0 {
		t.Errorf("expected no calls after cancellation, got %d", svc.calls)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"rate limit", &StatusError{Code: 429}, RateLimited},
		{"bad request", &StatusError{Code: 400}, Fatal},
		{"unauthorized", &StatusError{Code: 401}, Fatal},
		{"forbidden", &StatusError{Code: 403}, Fatal},
		{"server error", &StatusError{Code: 500}, Retryable},
		{"empty response", ErrEmptyResponse, Retryable},
		{"cancelled", context.Canceled, Fatal},
		{"generic", errors.New("boom"), Retryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

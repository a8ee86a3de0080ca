package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type stubProvider struct {
	name string

	embedVec []float32
	embedErr error

	completeOut string
	completeErr error

	embedCalls    int
	completeCalls int
	lastEmbedText string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	s.embedCalls++
	s.lastEmbedText = text
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.embedVec, nil
}

func (s *stubProvider) Complete(_ context.Context, _ []Message, _ CompleteOptions) (string, error) {
	s.completeCalls++
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return s.completeOut, nil
}

func rateLimited(provider string) error {
	return &ProviderError{Provider: provider, Kind: FailureRateLimited, Err: errors.New("429")}
}

func TestGatewayNoProviderConfigured(t *testing.T) {
	gw := NewGateway(nil, nil, nil)

	if _, err := gw.Embed(context.Background(), "text"); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if _, err := gw.Complete(context.Background(), nil, CompleteOptions{}); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestGatewayFailoverOnRateLimit(t *testing.T) {
	primary := &stubProvider{name: "primary", embedErr: rateLimited("primary")}
	fallback := &stubProvider{name: "fallback", embedVec: []float32{0.1, 0.2}}
	gw := NewGateway(primary, fallback, nil)

	vec, err := gw.Embed(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Fatalf("expected fallback vector, got %v", vec)
	}
	if primary.embedCalls != 1 {
		t.Fatalf("expected primary invoked exactly once, got %d", primary.embedCalls)
	}
	if fallback.embedCalls != 1 {
		t.Fatalf("expected fallback invoked exactly once, got %d", fallback.embedCalls)
	}
}

func TestGatewayFailoverOnBillingExhausted(t *testing.T) {
	primary := &stubProvider{name: "primary", completeErr: &ProviderError{
		Provider: "primary", Kind: FailureBillingExhausted, Err: errors.New("quota"),
	}}
	fallback := &stubProvider{name: "fallback", completeOut: "hello"}
	gw := NewGateway(primary, fallback, nil)

	out, err := gw.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompleteOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected fallback reply, got %q", out)
	}
}

func TestGatewayNoFailoverOnOtherErrors(t *testing.T) {
	primaryErr := &ProviderError{Provider: "primary", Kind: FailureOther, Err: errors.New("boom")}
	primary := &stubProvider{name: "primary", embedErr: primaryErr}
	fallback := &stubProvider{name: "fallback", embedVec: []float32{1}}
	gw := NewGateway(primary, fallback, nil)

	_, err := gw.Embed(context.Background(), "text")
	if !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error to propagate, got %v", err)
	}
	if fallback.embedCalls != 0 {
		t.Fatalf("fallback must not be tried on non-recoverable errors")
	}
}

func TestGatewayFallbackErrorPropagates(t *testing.T) {
	fallbackErr := rateLimited("fallback")
	primary := &stubProvider{name: "primary", embedErr: rateLimited("primary")}
	fallback := &stubProvider{name: "fallback", embedErr: fallbackErr}
	gw := NewGateway(primary, fallback, nil)

	_, err := gw.Embed(context.Background(), "text")
	if !errors.Is(err, fallbackErr) {
		t.Fatalf("expected fallback error to propagate, got %v", err)
	}
}

func TestGatewayTruncatesEmbeddingInput(t *testing.T) {
	primary := &stubProvider{name: "primary", embedVec: []float32{1}}
	gw := NewGateway(primary, nil, nil)

	long := strings.Repeat("a", maxEmbedChars+500)
	if _, err := gw.Embed(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(primary.lastEmbedText) != maxEmbedChars {
		t.Fatalf("expected input truncated to %d chars, got %d", maxEmbedChars, len(primary.lastEmbedText))
	}
	// Prefix truncation is deterministic: same input, same result.
	if TruncateForEmbedding(long) != TruncateForEmbedding(long) {
		t.Fatalf("truncation is not idempotent")
	}
	if !strings.HasPrefix(long, primary.lastEmbedText) {
		t.Fatalf("truncation must keep the prefix")
	}
}

func TestTruncationKeepsRunesIntact(t *testing.T) {
	// A multi-byte rune straddles the cut point.
	long := strings.Repeat("a", maxEmbedChars-1) + strings.Repeat("日", 4)

	got := TruncateForEmbedding(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got[len(got)-4:])
	}
	if len(got) != maxEmbedChars-1 {
		t.Fatalf("expected cut backed up to the rune boundary at %d, got %d", maxEmbedChars-1, len(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Fatalf("truncation must keep the prefix")
	}
}

func TestRecoverableClassification(t *testing.T) {
	if Recoverable(errors.New("plain")) {
		t.Fatalf("plain errors are not recoverable")
	}
	if Recoverable(&ProviderError{Kind: FailureOther, Err: errors.New("x")}) {
		t.Fatalf("other provider errors are not recoverable")
	}
	if !Recoverable(&ProviderError{Kind: FailureRateLimited, Err: errors.New("x")}) {
		t.Fatalf("rate-limited must be recoverable")
	}
	if !Recoverable(&ProviderError{Kind: FailureBillingExhausted, Err: errors.New("x")}) {
		t.Fatalf("billing-exhausted must be recoverable")
	}
}

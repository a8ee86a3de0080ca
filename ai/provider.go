package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoProvider is returned when no AI backend is configured. It is
// checked before any network call is attempted.
var ErrNoProvider = errors.New("no ai provider configured")

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// CompleteOptions tunes a completion request. Zero values mean
// provider defaults.
type CompleteOptions struct {
	Temperature float32
	MaxTokens   int
}

// Provider is a single AI backend able to embed text and complete chats.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
}

// FailureKind classifies provider errors for the failover policy.
type FailureKind string

const (
	FailureRateLimited      FailureKind = "rate_limited"
	FailureBillingExhausted FailureKind = "billing_exhausted"
	FailureOther            FailureKind = "other"
)

// ProviderError wraps a backend error with its provider and the
// classified failure kind.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the error is a quota-class failure worth
// retrying once against the fallback provider. Malformed input and
// generic server errors are not.
func Recoverable(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Kind == FailureRateLimited || perr.Kind == FailureBillingExhausted
}

package ai

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// maxEmbedChars bounds embedding input so requests stay under backend
// token ceilings. Prefix truncation keeps repeated calls idempotent.
const maxEmbedChars = 8000

const defaultCallTimeout = 60 * time.Second

// Gateway fronts one primary and at most one fallback provider. The
// pair is resolved once at startup; per-call dispatch never changes it.
type Gateway struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGateway(primary, fallback Provider, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		primary:  primary,
		fallback: fallback,
		timeout:  defaultCallTimeout,
		logger:   logger,
	}
}

// Configured reports whether at least a primary provider exists.
func (g *Gateway) Configured() bool {
	return g != nil && g.primary != nil
}

// Embed returns the embedding vector for text, truncated to the input
// budget, failing over once on a recoverable primary error.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if !g.Configured() {
		return nil, ErrNoProvider
	}
	text = TruncateForEmbedding(text)

	return failover(g, ctx, func(ctx context.Context, p Provider) ([]float32, error) {
		return p.Embed(ctx, text)
	})
}

// Complete runs a chat completion with the same failover policy.
func (g *Gateway) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	if !g.Configured() {
		return "", ErrNoProvider
	}
	return failover(g, ctx, func(ctx context.Context, p Provider) (string, error) {
		return p.Complete(ctx, messages, opts)
	})
}

// failover runs fn against the primary, retrying once on the fallback
// only for rate-limited or billing-exhausted errors. Any other primary
// error, and every fallback error, propagates unmodified.
func failover[T any](g *Gateway, ctx context.Context, fn func(context.Context, Provider) (T, error)) (T, error) {
	out, err := attempt(g, ctx, g.primary, fn)
	if err == nil {
		return out, nil
	}
	if g.fallback == nil || !Recoverable(err) {
		var zero T
		return zero, err
	}

	g.logger.Warn("primary provider failed, trying fallback",
		zap.String("primary", g.primary.Name()),
		zap.String("fallback", g.fallback.Name()),
		zap.Error(err),
	)
	return attempt(g, ctx, g.fallback, fn)
}

func attempt[T any](g *Gateway, ctx context.Context, p Provider, fn func(context.Context, Provider) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(cctx, p)
}

// TruncateForEmbedding applies the deterministic prefix truncation used
// for every embedding request. The cut never splits a UTF-8 rune.
func TruncateForEmbedding(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := maxEmbedChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

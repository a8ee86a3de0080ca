package ai

import (
	"context"

	"go.uber.org/zap"
)

// Resolve builds the (primary, fallback) provider pair from the
// configured API keys, once, at startup. Preference order is fixed:
// OpenAI when its key is set, Gemini otherwise; whichever of the two
// is left over becomes the fallback. Both slots may be nil, in which
// case the gateway answers every call with ErrNoProvider.
func Resolve(ctx context.Context, openaiKey, geminiKey string, logger *zap.Logger) (primary, fallback Provider, err error) {
	var gemini Provider
	if geminiKey != "" {
		gemini, err = NewGemini(ctx, geminiKey)
		if err != nil {
			return nil, nil, err
		}
	}

	switch {
	case openaiKey != "" && gemini != nil:
		primary, fallback = NewOpenAI(openaiKey), gemini
	case openaiKey != "":
		primary = NewOpenAI(openaiKey)
	case gemini != nil:
		primary = gemini
	}

	if logger != nil {
		fields := []zap.Field{zap.Bool("configured", primary != nil)}
		if primary != nil {
			fields = append(fields, zap.String("primary", primary.Name()))
		}
		if fallback != nil {
			fields = append(fields, zap.String("fallback", fallback.Name()))
		}
		logger.Info("ai providers resolved", fields...)
	}
	return primary, fallback, nil
}

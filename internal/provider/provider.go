package provider

import "context"

// Provider is the external text-generation API. Implementations return
// free-form text; callers own all parsing and fallback behavior. Any
// error (network, rate limit, empty body) is a recoverable per-call
// failure.
type Provider interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

package provider

import "context"

// ChatPayload 是一次补全请求的输入。
type ChatPayload struct {
	System     string
	User       string
	ExpectJSON bool
	MaxTokens  int
}

// ModelProvider is the decision oracle transport: it returns the raw model
// reply. Structured parsing and retries live in the oracle package.
type ModelProvider interface {
	ID() string
	Model() string
	Enabled() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}

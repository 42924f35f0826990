package toolround

// Fixed generation settings sent on every backend request.
const (
	Temperature     = 0.0
	MaxOutputTokens = int32(800)
)

// DefaultModel is used when WithModel is not given.
const DefaultModel = "gemini-2.5-flash"

// Option configures an Orchestrator (functional options pattern).
type Option func(*Orchestrator)

// WithModel sets the model name sent with every request.
func WithModel(name string) Option {
	return func(o *Orchestrator) {
		o.model = name
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt for this instance.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithTokenCounter sets the counter used by WithContextTokenLimit.
func WithTokenCounter(tc TokenCounter) Option {
	return func(o *Orchestrator) {
		o.tokenCounter = tc
	}
}

// WithContextTokenLimit keeps only the most recent maxTokens of prior context.
// Zero or negative means no limit.
func WithContextTokenLimit(maxTokens int) Option {
	return func(o *Orchestrator) {
		o.contextLimit = maxTokens
	}
}

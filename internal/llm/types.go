package llm

import "time"

// Request is one chat completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
}

// Response carries the completion text plus the usage accounting the
// tracer records.
type Response struct {
	Content    string
	TokensUsed int
	Model      string
	Elapsed    time.Duration
}

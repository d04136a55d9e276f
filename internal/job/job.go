package job

import (
	"context"

	"github.com/google/uuid"
)

// Job is the envelope every handler receives. Input is passed through
// untouched; routing is up to the handler.
type Job struct {
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// Result is the raw mapping a handler returns. Use Decode to turn it into a
// Response.
type Result map[string]any

// Handler is the contract of the service under test.
type Handler interface {
	Handle(ctx context.Context, j Job) (Result, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, j Job) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, j Job) (Result, error) {
	return f(ctx, j)
}

// New wraps input in an envelope with a fresh job id.
func New(input map[string]any) Job {
	return Job{
		ID:    uuid.New().String(),
		Input: input,
	}
}

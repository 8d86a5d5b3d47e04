package ports

import "context"

// TextGenerator produces short marketing copy from a prompt. Implemented
// by the external generation provider client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

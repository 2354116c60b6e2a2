// Package oracle defines the port for the external decision oracle.
package oracle

import "context"

// Client is the single call shape the coordinator depends on: an assembled
// prompt in, raw text out. Prompt assembly and reply parsing live in
// internal/domain/prompt; the client's reasoning is opaque and substitutable.
type Client interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

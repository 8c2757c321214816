package engine

import "context"

// Engine abstracts the local inference server used for chat and embeddings.
// Components depend on this interface, never on a concrete client.
type Engine interface {
	// Chat sends messages to model and returns the assistant text.
	// opts may be nil.
	Chat(ctx context.Context, model string, messages []Message, opts *ChatOptions) (string, error)

	// Embed returns the embedding of text under model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	IsRunning(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. onProgress may be nil.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

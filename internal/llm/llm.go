// Package llm adapts remote chat providers to a single conversational handle.
package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/zhouzirui/gemini-chat/internal/config"
	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

// Chunk is one text fragment of a streamed reply.
type Chunk struct {
	Text string
}

// Handle is a provider-owned conversation that remembers prior turns.
// The returned reader is finite, not restartable, and ends with io.EOF.
type Handle interface {
	SendStreamed(ctx context.Context, utterance string) (*schema.StreamReader[Chunk], error)
}

// Client starts new conversations with the remote model.
type Client interface {
	StartSession(ctx context.Context, history []chat.Turn) (Handle, error)
}

// NewClient builds the client selected by cfg.Provider. Stream controls whether
// the handles request a streamed reply or a single complete one.
func NewClient(ctx context.Context, cfg config.AIConfig, stream bool) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, stream)
	case config.ProviderArk:
		cm, err := cfg.NewArkChatModel(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "create ark chat model")
		}
		return NewModelClient(cm, stream), nil
	default:
		return nil, errors.Errorf("unsupported provider %q", cfg.Provider)
	}
}

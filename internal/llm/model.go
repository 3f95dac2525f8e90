package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

// ModelClient turns a stateless eino chat model (Ark) into conversational
// handles that keep their own message history.
type ModelClient struct {
	model  model.BaseChatModel
	stream bool
}

// NewModelClient wraps cm.
func NewModelClient(cm model.BaseChatModel, stream bool) *ModelClient {
	return &ModelClient{model: cm, stream: stream}
}

// StartSession returns a handle seeded with history.
func (c *ModelClient) StartSession(_ context.Context, history []chat.Turn) (Handle, error) {
	msgs := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		if turn.Speaker == chat.Bot {
			msgs = append(msgs, schema.AssistantMessage(turn.Utterance, nil))
			continue
		}
		msgs = append(msgs, schema.UserMessage(turn.Utterance))
	}
	return &modelHandle{model: c.model, stream: c.stream, history: msgs}, nil
}

type modelHandle struct {
	model  model.BaseChatModel
	stream bool

	mu      sync.Mutex
	history []*schema.Message
}

func (h *modelHandle) input(utterance string) []*schema.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := make([]*schema.Message, 0, len(h.history)+1)
	msgs = append(msgs, h.history...)
	return append(msgs, schema.UserMessage(utterance))
}

// record appends a completed exchange; failed turns never reach the history.
func (h *modelHandle) record(utterance, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, schema.UserMessage(utterance), schema.AssistantMessage(reply, nil))
}

func (h *modelHandle) SendStreamed(ctx context.Context, utterance string) (*schema.StreamReader[Chunk], error) {
	input := h.input(utterance)

	if !h.stream {
		resp, err := h.model.Generate(ctx, input)
		if err != nil {
			return nil, err
		}
		h.record(utterance, resp.Content)
		return schema.StreamReaderFromArray([]Chunk{{Text: resp.Content}}), nil
	}

	upstream, err := h.model.Stream(ctx, input)
	if err != nil {
		return nil, err
	}

	sr, sw := schema.Pipe[Chunk](8)
	go func() {
		defer upstream.Close()
		defer sw.Close()

		var reply strings.Builder
		for {
			msg, recvErr := upstream.Recv()
			if errors.Is(recvErr, io.EOF) {
				h.record(utterance, reply.String())
				return
			}
			if recvErr != nil {
				sw.Send(Chunk{}, recvErr)
				return
			}
			if msg == nil {
				continue
			}

			reply.WriteString(msg.Content)
			if closed := sw.Send(Chunk{Text: msg.Content}, nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

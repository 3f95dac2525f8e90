package llm

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

// ErrScriptExhausted is returned when a ScriptedClient runs out of turns.
var ErrScriptExhausted = errors.New("scripted client has no more turns")

// ScriptedTurn is one canned reply.
type ScriptedTurn struct {
	Chunks []string      // Fragments emitted in order
	Delay  time.Duration // Wait before the first fragment
	Err    error         // Returned from SendStreamed instead of a stream
	MidErr error         // Emitted by the stream after Chunks
}

// ScriptedClient is an in-process Client that replays canned turns. Every
// handle it starts draws from the same script and records what it was sent.
type ScriptedClient struct {
	mu       sync.Mutex
	turns    []ScriptedTurn
	next     int
	sessions int
	sent     []string
}

// NewScriptedClient creates a client that answers with turns in order.
func NewScriptedClient(turns ...ScriptedTurn) *ScriptedClient {
	return &ScriptedClient{turns: turns}
}

// AddReply appends a turn answering with chunks.
func (c *ScriptedClient) AddReply(chunks ...string) *ScriptedClient {
	return c.AddTurn(ScriptedTurn{Chunks: chunks})
}

// AddTurn appends t to the script.
func (c *ScriptedClient) AddTurn(t ScriptedTurn) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	return c
}

// Sessions reports how many handles were started.
func (c *ScriptedClient) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// Sent returns a copy of every utterance received so far.
func (c *ScriptedClient) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *ScriptedClient) StartSession(_ context.Context, _ []chat.Turn) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions++
	return &scriptedHandle{client: c}, nil
}

func (c *ScriptedClient) take(utterance string) (ScriptedTurn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, utterance)
	if c.next >= len(c.turns) {
		return ScriptedTurn{}, ErrScriptExhausted
	}
	t := c.turns[c.next]
	c.next++
	return t, nil
}

type scriptedHandle struct {
	client *ScriptedClient
}

func (h *scriptedHandle) SendStreamed(ctx context.Context, utterance string) (*schema.StreamReader[Chunk], error) {
	turn, err := h.client.take(utterance)
	if err != nil {
		return nil, err
	}
	if turn.Err != nil {
		return nil, turn.Err
	}

	if turn.Delay > 0 {
		select {
		case <-time.After(turn.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sr, sw := schema.Pipe[Chunk](len(turn.Chunks) + 1)
	for _, text := range turn.Chunks {
		sw.Send(Chunk{Text: text}, nil)
	}
	if turn.MidErr != nil {
		sw.Send(Chunk{}, turn.MidErr)
	}
	sw.Close()
	return sr, nil
}

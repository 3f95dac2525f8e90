package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/zhouzirui/gemini-chat/internal/llm"
)

// Respond sends utterance through handle and concatenates the streamed
// fragments in arrival order. Remote failures are returned unmodified.
func Respond(ctx context.Context, utterance string, handle llm.Handle) (string, error) {
	return Relay(ctx, utterance, handle, nil)
}

// Relay behaves like Respond but hands every non-empty fragment to onChunk
// before accumulating it. An onChunk error aborts the turn.
func Relay(ctx context.Context, utterance string, handle llm.Handle, onChunk func(string) error) (string, error) {
	stream, err := handle.SendStreamed(ctx, utterance)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}

		if onChunk != nil && chunk.Text != "" {
			if err := onChunk(chunk.Text); err != nil {
				return "", err
			}
		}
		reply.WriteString(chunk.Text)
	}

	return reply.String(), nil
}

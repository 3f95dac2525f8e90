package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedClientReplaysTurns(t *testing.T) {
	transport := errors.New("connection reset")
	client := NewScriptedClient().
		AddReply("Hi", " there").
		AddTurn(ScriptedTurn{Err: transport})

	handle, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	sr, err := handle.SendStreamed(context.Background(), "Hello")
	require.NoError(t, err)
	got, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, got)

	_, err = handle.SendStreamed(context.Background(), "C")
	assert.Equal(t, transport, err)

	_, err = handle.SendStreamed(context.Background(), "D")
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Equal(t, []string{"Hello", "C", "D"}, client.Sent())
	assert.Equal(t, 1, client.Sessions())
}

func TestScriptedClientEmptyReply(t *testing.T) {
	client := NewScriptedClient().AddReply()

	handle, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	sr, err := handle.SendStreamed(context.Background(), "anything")
	require.NoError(t, err)
	got, err := drain(t, sr)
	require.NoError(t, err)
	assert.Empty(t, got)
}

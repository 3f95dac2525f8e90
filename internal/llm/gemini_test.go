package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/gemini-chat/internal/config"
	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// fakeGemini answers generateContent and streamGenerateContent with canned text.
type fakeGemini struct {
	mu       sync.Mutex
	chunks   []string
	status   int
	requests []geminiRequest
	paths    []string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.paths = append(f.paths, r.URL.Path)
	chunks, status := f.chunks, f.status
	f.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"request rejected","status":"FAILED_PRECONDITION"}}`, status)
		return
	}

	if strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", candidate(c))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(candidate(strings.Join(chunks, ""))))
}

func (f *fakeGemini) recorded() ([]geminiRequest, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]geminiRequest(nil), f.requests...), append([]string(nil), f.paths...)
}

func candidate(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": geminiContent{Role: "model", Parts: []geminiPart{{Text: text}}},
		}},
	})
	return string(body)
}

func newTestGeminiClient(t *testing.T, backend *fakeGemini, stream bool) *GeminiClient {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(context.Background(), config.AIConfig{
		Provider:      config.ProviderGemini,
		GoogleAPIKey:  "test-key",
		GeminiModel:   "gemini-2.0-flash",
		GeminiBaseURL: srv.URL,
	}, stream)
	require.NoError(t, err)
	return client
}

func TestGeminiStreamConcatenatesChunksInOrder(t *testing.T) {
	backend := &fakeGemini{chunks: []string{"Hi", " there"}}
	client := newTestGeminiClient(t, backend, true)

	handle, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	sr, err := handle.SendStreamed(context.Background(), "hello")
	require.NoError(t, err)
	parts, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", strings.Join(parts, ""))

	backend.mu.Lock()
	backend.chunks = []string{"again"}
	backend.mu.Unlock()

	sr, err = handle.SendStreamed(context.Background(), "second")
	require.NoError(t, err)
	_, err = drain(t, sr)
	require.NoError(t, err)

	requests, paths := backend.recorded()
	require.Len(t, requests, 2)
	assert.True(t, strings.HasSuffix(paths[0], ":streamGenerateContent"), paths[0])

	second := requests[1].Contents
	require.Len(t, second, 3)
	assert.Equal(t, geminiContent{Role: "user", Parts: []geminiPart{{Text: "hello"}}}, second[0])
	assert.Equal(t, "model", second[1].Role)
	assert.Equal(t, "second", second[2].Parts[0].Text)
}

func TestGeminiNonStreamYieldsOneChunk(t *testing.T) {
	backend := &fakeGemini{chunks: []string{"one ", "two"}}
	client := newTestGeminiClient(t, backend, false)

	handle, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	sr, err := handle.SendStreamed(context.Background(), "count")
	require.NoError(t, err)
	parts, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, []string{"one two"}, parts)

	_, paths := backend.recorded()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], ":generateContent"), paths[0])
}

func TestGeminiStreamSurfacesHTTPError(t *testing.T) {
	backend := &fakeGemini{status: http.StatusBadRequest}
	client := newTestGeminiClient(t, backend, true)

	handle, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	sr, err := handle.SendStreamed(context.Background(), "hello")
	require.NoError(t, err)
	parts, err := drain(t, sr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request rejected")
	assert.Empty(t, parts)
}

func TestGeminiNonStreamSurfacesHTTPError(t *testing.T) {
	backend := &fakeGemini{status: http.StatusForbidden}
	client := newTestGeminiClient(t, backend, false)

	handle, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	_, err = handle.SendStreamed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request rejected")
}

func TestGeminiSessionCarriesSeededHistory(t *testing.T) {
	backend := &fakeGemini{chunks: []string{"ok"}}
	client := newTestGeminiClient(t, backend, false)

	history := []chat.Turn{
		{Speaker: chat.User, Utterance: "hi"},
		{Speaker: chat.Bot, Utterance: "hello"},
	}
	handle, err := client.StartSession(context.Background(), history)
	require.NoError(t, err)

	sr, err := handle.SendStreamed(context.Background(), "next")
	require.NoError(t, err)
	_, err = drain(t, sr)
	require.NoError(t, err)

	requests, _ := backend.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, []geminiContent{
		{Role: "user", Parts: []geminiPart{{Text: "hi"}}},
		{Role: "model", Parts: []geminiPart{{Text: "hello"}}},
		{Role: "user", Parts: []geminiPart{{Text: "next"}}},
	}, requests[0].Contents)
}

func TestToGeminiHistoryRoles(t *testing.T) {
	assert.Nil(t, toGeminiHistory(nil))

	got := toGeminiHistory([]chat.Turn{
		{Speaker: chat.User, Utterance: "q"},
		{Speaker: chat.Bot, Utterance: "a"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, "a", got[1].Parts[0].Text)
}

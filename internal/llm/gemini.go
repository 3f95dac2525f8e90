package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/zhouzirui/gemini-chat/internal/config"
	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

// GeminiClient opens chats against the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	stream      bool
	temperature *float32
}

// NewGeminiClient authenticates with cfg.GoogleAPIKey.
func NewGeminiClient(ctx context.Context, cfg config.AIConfig, stream bool) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	var temperature *float32
	if cfg.GeminiTemperature != nil {
		val := float32(*cfg.GeminiTemperature)
		temperature = &val
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.GeminiModel,
		stream:      stream,
		temperature: temperature,
	}, nil
}

// StartSession creates a chat seeded with history.
func (c *GeminiClient) StartSession(ctx context.Context, history []chat.Turn) (Handle, error) {
	var genCfg *genai.GenerateContentConfig
	if c.temperature != nil {
		genCfg = &genai.GenerateContentConfig{Temperature: c.temperature}
	}

	session, err := c.client.Chats.Create(ctx, c.model, genCfg, toGeminiHistory(history))
	if err != nil {
		return nil, errors.Wrap(err, "start gemini chat")
	}
	return &geminiHandle{chat: session, stream: c.stream}, nil
}

func toGeminiHistory(turns []chat.Turn) []*genai.Content {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Speaker == chat.Bot {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(turn.Utterance, role))
	}
	return history
}

type geminiHandle struct {
	chat   *genai.Chat
	stream bool
}

func (h *geminiHandle) SendStreamed(ctx context.Context, utterance string) (*schema.StreamReader[Chunk], error) {
	part := genai.Part{Text: utterance}

	if !h.stream {
		resp, err := h.chat.SendMessage(ctx, part)
		if err != nil {
			return nil, err
		}
		return schema.StreamReaderFromArray([]Chunk{{Text: resp.Text()}}), nil
	}

	sr, sw := schema.Pipe[Chunk](8)
	go func() {
		defer sw.Close()
		for resp, err := range h.chat.SendMessageStream(ctx, part) {
			if err != nil {
				sw.Send(Chunk{}, err)
				return
			}
			if closed := sw.Send(Chunk{Text: resp.Text()}, nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

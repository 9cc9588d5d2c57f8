package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"adaptive.dev/assessment-server/internal/config"
)

const probePrompt = "Hello! Please respond with just 'API key is working!' to confirm the connection."

// ConversationModel continues a multi-turn exchange.
type ConversationModel interface {
	Converse(ctx context.Context, history []*genai.Content) (string, error)
}

// CompletionModel answers a single prompt.
type CompletionModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type LLMService struct {
	client      *genai.Client
	chatModel   string
	assistModel string
}

func NewLLMService(ctx context.Context, cfg config.ModelConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing model API key", config.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:      client,
		chatModel:   cfg.ChatModel,
		assistModel: cfg.AssistModel,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			slog.Error("error closing GenAI client", "err", err)
		} else {
			slog.Info("GenAI client closed")
		}
	}
}

// Converse sends the whole history as one request. The last entry must be a
// user turn; everything before it becomes the chat session history.
func (s *LLMService) Converse(ctx context.Context, history []*genai.Content) (string, error) {
	prior, last, err := splitHistory(history)
	if err != nil {
		return "", err
	}

	model := s.client.GenerativeModel(s.chatModel)
	chatSession := model.StartChat()
	chatSession.History = prior

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	return responseText(resp)
}

func (s *LLMService) Complete(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.assistModel)
	model.SetTemperature(0.7)
	model.SetTopP(0.8)
	model.SetTopK(40)
	model.SetMaxOutputTokens(1024)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate request failed: %w", err)
	}
	return responseText(resp)
}

// Ping performs a minimal generation against the assist model to verify the credential.
func (s *LLMService) Ping(ctx context.Context) (string, error) {
	model := s.client.GenerativeModel(s.assistModel)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(50)

	resp, err := model.GenerateContent(ctx, genai.Text(probePrompt))
	if err != nil {
		return "", fmt.Errorf("gemini probe request failed: %w", err)
	}
	return responseText(resp)
}

func splitHistory(history []*genai.Content) ([]*genai.Content, *genai.Content, error) {
	if len(history) == 0 {
		return nil, nil, errors.New("prompt history is empty for chat completion")
	}
	last := history[len(history)-1]
	if last.Role != string(RoleUser) {
		return nil, nil, fmt.Errorf("last message in history is from %q, not 'user'", last.Role)
	}
	// Clipped so the session's appends never write into the caller's slice.
	return slices.Clip(history[:len(history)-1]), last, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini response was empty or had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			slog.Debug("gemini response part was not text", "type", fmt.Sprintf("%T", part))
		}
	}
	if responseText.Len() == 0 {
		return "", errors.New("gemini response had no text parts")
	}
	return responseText.String(), nil
}

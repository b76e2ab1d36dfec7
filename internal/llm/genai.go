package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// GeminiConfig holds parameters for the Google GenAI backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient implements Client over the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

func (c *GeminiClient) AnalyzeIntent(ctx context.Context, req IntentRequest) (*model.IntentReply, error) {
	raw, err := c.generate(ctx, intentSystemPrompt, IntentUserMessage(req), true)
	if err != nil {
		return nil, err
	}
	return ParseIntentReply(raw)
}

func (c *GeminiClient) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	raw, err := c.generate(ctx, replySystemPrompt, ReplyUserMessage(req), false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (c *GeminiClient) generate(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temperature,
	}
	if wantJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty genai response")
	}
	return text, nil
}

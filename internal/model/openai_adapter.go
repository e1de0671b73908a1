package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"community-backend/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// openaiCompleter 兼容 OpenAI Chat Completions 协议的服务
type openaiCompleter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func newOpenAICompleter(cfg config.OpenAIConfig, httpClient *http.Client) (*openaiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	return &openaiCompleter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (m *openaiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    m.convertMessages(req),
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Status: http.StatusOK}
	}

	return resp.Choices[0].Message.Content, nil
}

// 消息格式转换
func (m *openaiCompleter) convertMessages(req CompletionRequest) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	result = append(result, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemInstruction,
	})

	for _, turn := range req.Turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		// 空的 assistant 消息会导致 API 报错
		if role == openai.ChatMessageRoleAssistant && turn.Text == "" {
			continue
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text,
		})
	}

	return result
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Status: reqErr.HTTPStatusCode}
	}

	return err
}

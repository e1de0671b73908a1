package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"community-backend/internal/config"
	"community-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// einoCompleter 把任意 eino ChatModel（豆包、通义千问）适配为 Completer
type einoCompleter struct {
	chatModel einoModel.ChatModel
	provider  string
}

func newEinoCompleter(chatModel einoModel.ChatModel, provider string) *einoCompleter {
	return &einoCompleter{chatModel: chatModel, provider: provider}
}

func (c *einoCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]*schema.Message, 0, len(req.Turns)+1)
	messages = append(messages, schema.SystemMessage(req.SystemInstruction))
	for _, turn := range req.Turns {
		if turn.Role == RoleUser {
			messages = append(messages, schema.UserMessage(turn.Text))
		} else {
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}

	out, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		logger.Debugf("%s generate failed: %v", c.provider, err)
		if isTransportError(err) {
			return "", err
		}
		// eino 不暴露服务端错误结构，只能保留错误文本
		return "", &ProviderError{Message: err.Error()}
	}
	if out == nil {
		return "", &ProviderError{}
	}

	return out.Content, nil
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// createDoubaoModel httpClient 的超时是唯一的截止时间，重试次数显式配置
func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig, httpClient *http.Client) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("doubao api key is required")
	}
	logger.Infof("Using Doubao model: %s", cfg.Model)

	retryTimes := cfg.RetryTimes
	timeout := cfg.Timeout
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    &timeout,
		HTTPClient: httpClient,
		RetryTimes: &retryTimes,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}

	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig, httpClient *http.Client) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("qwen api key is required")
	}
	logger.Infof("Using Qwen model: %s, BaseURL: %s", cfg.Model, cfg.BaseURL)

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}

	return chatModel, nil
}

package model

import (
	"context"
	"fmt"

	"community-backend/internal/config"
	"community-backend/internal/utils"
)

// NewCompleter 根据 model.provider 创建远端补全客户端。
// 凭证只存在于服务端配置中，前端永远只调用本服务。
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.Model.Provider {
	case config.ProviderGemini:
		transport := NewDebugTransport(utils.NewTransport(), config.ProviderGemini, cfg.Gemini.DebugRequest)
		client, err := NewGeminiClient(ctx, cfg.Gemini, utils.NewHTTPClient(cfg.Gemini.Timeout, transport))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		transport := NewDebugTransport(utils.NewTransport(), config.ProviderOpenAI, cfg.OpenAI.DebugRequest)
		client, err := newOpenAICompleter(cfg.OpenAI, utils.NewHTTPClient(cfg.OpenAI.Timeout, transport))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderDoubao:
		transport := NewDebugTransport(utils.NewTransport(), config.ProviderDoubao, cfg.Doubao.DebugRequest)
		chatModel, err := createDoubaoModel(ctx, cfg.Doubao, utils.NewHTTPClient(cfg.Doubao.Timeout, transport))
		if err != nil {
			return nil, err
		}
		return newEinoCompleter(chatModel, config.ProviderDoubao), nil
	case config.ProviderQwen:
		transport := NewDebugTransport(utils.NewTransport(), config.ProviderQwen, cfg.Qwen.DebugRequest)
		chatModel, err := createQwenModel(ctx, cfg.Qwen, utils.NewHTTPClient(cfg.Qwen.Timeout, transport))
		if err != nil {
			return nil, err
		}
		return newEinoCompleter(chatModel, config.ProviderQwen), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}
}

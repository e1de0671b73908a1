package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"community-backend/internal/chat"
	"community-backend/internal/config"
	"community-backend/internal/metrics"
	"community-backend/internal/model"
	"community-backend/internal/storage"
	"community-backend/pkg/logger"
)

var ErrAssistantNotFound = errors.New("assistant not found")

type ChatService struct {
	storage    storage.SessionStore
	completer  model.Completer
	clipboard  chat.Clipboard
	assistants map[string]config.AssistantConfig
	chatCfg    config.ChatConfig
	sessionCfg config.SessionConfig
}

func NewChatService(cfg *config.Config, store storage.SessionStore, completer model.Completer, clipboard chat.Clipboard) *ChatService {
	return &ChatService{
		storage:    store,
		completer:  completer,
		clipboard:  clipboard,
		assistants: cfg.Assistants,
		chatCfg:    cfg.Chat,
		sessionCfg: cfg.Session,
	}
}

// Assistants 按名称排序，不包含系统指令
func (s *ChatService) Assistants() []model.AssistantResponse {
	result := make([]model.AssistantResponse, 0, len(s.assistants))
	for name, a := range s.assistants {
		result = append(result, model.AssistantResponse{
			Name:     name,
			Title:    a.Title,
			Greeting: a.Greeting,
			Prompts:  append([]string(nil), a.Prompts...),
			Theme:    a.Theme,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// CreateSession 挂载一个新的对话视图，日志以欢迎语开始
func (s *ChatService) CreateSession(assistant string) (*chat.Session, error) {
	a, ok := s.assistants[assistant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssistantNotFound, assistant)
	}

	session := chat.NewSession("", chat.Options{
		Assistant:         assistant,
		SystemInstruction: a.SystemInstruction,
		Greeting:          a.Greeting,
		Prompts:           a.Prompts,
		NoResponseText:    s.chatCfg.NoResponseText,
		ProviderErrorText: s.chatCfg.ProviderErrorText,
		NetworkErrorText:  s.chatCfg.NetworkErrorText,
		CopyAckDuration:   s.chatCfg.CopyAckDuration,
	}, s.completer, s.clipboard)

	if err := s.storage.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	metrics.LiveSessions.Inc()
	logger.Infof("Created session %s for assistant %s", session.ID(), assistant)

	return session, nil
}

func (s *ChatService) GetSession(sessionID string) (*chat.Session, error) {
	session, err := s.storage.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return session, nil
}

func (s *ChatService) ListSessions() ([]model.SessionSummary, error) {
	sessions, err := s.storage.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]model.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		snap := session.Snapshot()
		result = append(result, model.SessionSummary{
			SessionID:    snap.SessionID,
			Assistant:    snap.Assistant,
			Busy:         snap.Busy,
			MessageCount: len(snap.Messages),
			UpdatedAt:    snap.UpdatedAt.Unix(),
		})
	}
	return result, nil
}

// DeleteSession 对应视图卸载；进行中的请求结果会被丢弃
func (s *ChatService) DeleteSession(sessionID string) error {
	session, err := s.storage.Delete(sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	session.Close()
	metrics.LiveSessions.Dec()
	return nil
}

func (s *ChatService) Send(ctx context.Context, sessionID, text string) (chat.Exchange, bool, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return chat.Exchange{}, false, err
	}
	exchange, accepted := session.Send(ctx, text)
	return exchange, accepted, nil
}

func (s *ChatService) SendPrompt(ctx context.Context, sessionID string, index int) (chat.Exchange, bool, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return chat.Exchange{}, false, err
	}
	exchange, accepted := session.SendPrompt(ctx, index)
	return exchange, accepted, nil
}

func (s *ChatService) SetInput(sessionID, text string) (model.SessionSnapshot, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	session.SetInput(text)
	return session.Snapshot(), nil
}

func (s *ChatService) Copy(sessionID, messageID string) (string, bool, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return "", false, err
	}
	text, copied := session.Copy(messageID)
	return text, copied, nil
}

// StartCleanup 定期回收长时间未更新的会话，ctx 结束时退出
func (s *ChatService) StartCleanup(ctx context.Context) {
	if s.sessionCfg.CleanupInterval <= 0 || s.sessionCfg.TTL <= 0 {
		return
	}
	go s.cleanupLoop(ctx)
}

func (s *ChatService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sessionCfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

func (s *ChatService) cleanupExpired(now time.Time) int {
	sessions, err := s.storage.List()
	if err != nil {
		logger.Errorf("Failed to list sessions for cleanup: %v", err)
		return 0
	}

	cutoff := now.Add(-s.sessionCfg.TTL)
	removed := 0
	for _, session := range sessions {
		// 等待回复中的会话不回收；关闭后 Send 会被拒绝，之后再从注册表移除
		if !session.CloseIfIdle(cutoff) {
			continue
		}
		if _, err := s.storage.Delete(session.ID()); err != nil {
			if !errors.Is(err, storage.ErrSessionNotFound) {
				logger.Errorf("Failed to delete expired session %s: %v", session.ID(), err)
			}
			continue
		}
		metrics.LiveSessions.Dec()
		removed++
		logger.Infof("Cleaned up expired session: %s", session.ID())
	}
	return removed
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"community-backend/internal/chat"
	"community-backend/internal/model"
	"community-backend/internal/service"
	"community-backend/internal/storage"
	"community-backend/internal/utils"
	"community-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ChatHandler struct {
	chatService       *service.ChatService
	heartbeatInterval time.Duration
}

func NewChatHandler(chatService *service.ChatService, heartbeatInterval time.Duration) *ChatHandler {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 15 * time.Second
	}
	return &ChatHandler{
		chatService:       chatService,
		heartbeatInterval: heartbeatInterval,
	}
}

func (h *ChatHandler) ListAssistants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"assistants": h.chatService.Assistants(),
	})
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	session, err := h.chatService.CreateSession(c.Param("assistant"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session.Snapshot(),
		"prompts": session.Prompts(),
	})
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chatService.ListSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	session, err := h.chatService.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.chatService.DeleteSession(c.Param("session_id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

func (h *ChatHandler) SetInput(c *gin.Context) {
	var req model.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.chatService.SetInput(c.Param("session_id"), req.Text)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SendMessage 同步发送；请求体 text 为空时发送输入缓冲区。被守卫拒绝时 accepted 为 false
func (h *ChatHandler) SendMessage(c *gin.Context) {
	session, text, ok := h.bindSend(c)
	if !ok {
		return
	}

	exchange, accepted := session.Send(c.Request.Context(), text)
	c.JSON(http.StatusOK, sendResponse(session, exchange, accepted))
}

func (h *ChatHandler) SendPrompt(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prompt index"})
		return
	}

	// 会话只解析一次；等待期间被删除时结果照常返回
	session, err := h.chatService.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	exchange, accepted := session.SendPrompt(c.Request.Context(), index)
	c.JSON(http.StatusOK, sendResponse(session, exchange, accepted))
}

// StreamMessage 以 SSE 推送会话快照：占位消息出现时一次，终止消息写入后一次，最后是 result 事件
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	session, text, ok := h.bindSend(c)
	if !ok {
		return
	}

	log := logger.WithFields(logrus.Fields{
		"session_id": session.ID(),
		"assistant":  session.Assistant(),
	})

	// 回调在 Send 所在的 goroutine 中执行，不能阻塞；缓冲满时丢弃中间快照
	snapshots := make(chan model.SessionSnapshot, 16)
	unsubscribe := session.Subscribe(func(snap model.SessionSnapshot) {
		select {
		case snapshots <- snap:
		default:
		}
	})
	defer unsubscribe()

	type result struct {
		exchange chat.Exchange
		accepted bool
	}
	done := make(chan result, 1)
	go func() {
		exchange, accepted := session.Send(context.WithoutCancel(c.Request.Context()), text)
		done <- result{exchange: exchange, accepted: accepted}
	}()

	sseWriter := utils.NewSSEWriter(c.Writer)
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case snap := <-snapshots:
			if err := sseWriter.WriteJSON("snapshot", snap); err != nil {
				log.Warnf("Failed to write snapshot: %v", err)
				return
			}

		case <-heartbeat.C:
			if err := sseWriter.WriteJSON("heartbeat", gin.H{"timestamp": time.Now().Unix()}); err != nil {
				log.Warnf("Failed to write heartbeat: %v", err)
				return
			}

		case r := <-done:
			unsubscribe()
			for drained := false; !drained; {
				select {
				case snap := <-snapshots:
					if err := sseWriter.WriteJSON("snapshot", snap); err != nil {
						return
					}
				default:
					drained = true
				}
			}
			if err := sseWriter.WriteJSON("result", sendResponse(session, r.exchange, r.accepted)); err != nil {
				log.Warnf("Failed to write result: %v", err)
				return
			}
			sseWriter.Close()
			return

		case <-ctx.Done():
			// 客户端断开，请求继续在后台完成并写入会话日志
			log.Info("Stream client disconnected")
			return
		}
	}
}

func (h *ChatHandler) CopyMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	text, copied, err := h.chatService.Copy(c.Param("session_id"), messageID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.CopyResponse{
		Copied:    copied,
		MessageID: messageID,
		Text:      text,
	})
}

func (h *ChatHandler) bindSend(c *gin.Context) (*chat.Session, string, bool) {
	var req model.SendMessageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, "", false
		}
	}

	session, err := h.chatService.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil, "", false
	}

	text := req.Text
	if text == "" {
		text = session.Input()
	}
	return session, text, true
}

func sendResponse(session *chat.Session, exchange chat.Exchange, accepted bool) model.SendResponse {
	resp := model.SendResponse{
		Accepted: accepted,
		Session:  session.Snapshot(),
	}
	if accepted {
		resp.Outcome = exchange.Outcome
		reply := exchange.Reply
		resp.Reply = &reply
	}
	return resp
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound),
		errors.Is(err, storage.ErrCommunityNotFound),
		errors.Is(err, service.ErrAssistantNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrCommunityExists),
		errors.Is(err, storage.ErrSessionExists),
		errors.Is(err, storage.ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrInvalidData):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

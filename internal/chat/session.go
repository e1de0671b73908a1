package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"community-backend/internal/metrics"
	"community-backend/internal/model"
	"community-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultNoResponseText    = "No response."
	DefaultProviderErrorText = "Sorry, the assistant could not answer right now. Please try again."
	DefaultNetworkErrorText  = "Network error: unable to reach the assistant. Please check your connection and try again."
	DefaultCopyAckDuration   = 1500 * time.Millisecond
)

const (
	OutcomeSuccess       = "success"
	OutcomeProviderError = "provider_error"
	OutcomeNetworkError  = "network_error"
	OutcomeRejected      = "rejected"
)

// Clipboard 外部剪贴板
type Clipboard interface {
	WriteAll(text string) error
}

// Options 一个助手页面的参数：人设、欢迎语、预置问题以及兜底文案
type Options struct {
	Assistant         string
	SystemInstruction string
	Greeting          string
	Prompts           []string
	NoResponseText    string
	ProviderErrorText string
	NetworkErrorText  string
	CopyAckDuration   time.Duration
}

func (o *Options) applyDefaults() {
	if o.NoResponseText == "" {
		o.NoResponseText = DefaultNoResponseText
	}
	if o.ProviderErrorText == "" {
		o.ProviderErrorText = DefaultProviderErrorText
	}
	if o.NetworkErrorText == "" {
		o.NetworkErrorText = DefaultNetworkErrorText
	}
	if o.CopyAckDuration <= 0 {
		o.CopyAckDuration = DefaultCopyAckDuration
	}
}

// Exchange 一次被接受的 send 的结果
type Exchange struct {
	User    model.Message
	Reply   model.Message
	Outcome string
	// Discarded 表示请求返回时会话已关闭，结果没有写入日志
	Discarded bool
}

// Session 单个对话视图的状态机：Idle --send--> Awaiting --任意结果--> Idle。
// busy 为 true 时的 send 直接拒绝，不排队。锁不会跨远端调用持有。
type Session struct {
	id        string
	opts      Options
	completer model.Completer
	clipboard Clipboard
	createdAt time.Time

	mu        sync.Mutex
	messages  []model.Message
	input     string
	busy      bool
	closed    bool
	updatedAt time.Time

	copied    string
	copySeq   uint64
	copyTimer *time.Timer

	listeners    map[int]func(model.SessionSnapshot)
	nextListener int
	version      uint64

	// notifyMu 串行化回调，保证订阅者看到的版本单调递增；持有 notifyMu 时可以再取 mu，反之不行
	notifyMu     sync.Mutex
	lastNotified uint64
}

func NewSession(id string, opts Options, completer model.Completer, clipboard Clipboard) *Session {
	opts.applyDefaults()
	if id == "" {
		id = newID()
	}
	now := time.Now()

	s := &Session{
		id:        id,
		opts:      opts,
		completer: completer,
		clipboard: clipboard,
		createdAt: now,
		updatedAt: now,
		listeners: make(map[int]func(model.SessionSnapshot)),
	}
	s.messages = []model.Message{newMessage(model.SenderBot, opts.Greeting)}

	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Assistant() string {
	return s.opts.Assistant
}

func (s *Session) Prompts() []string {
	return append([]string(nil), s.opts.Prompts...)
}

// Send 发送一条用户消息并等待结果。
// 输入为空、会话忙或已关闭时静默忽略，返回 false；任何失败都以 error 消息写入日志，不会返回错误。
func (s *Session) Send(ctx context.Context, text string) (Exchange, bool) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.busy || s.closed {
		s.mu.Unlock()
		metrics.ChatSends.WithLabelValues(s.opts.Assistant, OutcomeRejected).Inc()
		return Exchange{}, false
	}

	userMsg := newMessage(model.SenderUser, text)
	pending := model.Message{
		ID:        newID(),
		Sender:    model.SenderBot,
		Kind:      model.KindPending,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, userMsg, pending)
	s.input = ""
	s.busy = true
	s.updatedAt = time.Now()
	s.version++
	req := model.CompletionRequest{
		SystemInstruction: s.opts.SystemInstruction,
		Turns:             BuildHistory(s.messages),
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	log := logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"assistant":  s.opts.Assistant,
		"turns":      len(req.Turns),
	})
	log.Debug("dispatching completion")

	// 已发出的请求不取消，只受传输层超时约束
	start := time.Now()
	reply, err := s.complete(context.WithoutCancel(ctx), req)
	metrics.CompletionLatency.WithLabelValues(s.opts.Assistant).Observe(time.Since(start).Seconds())

	terminal, outcome := s.resolve(reply, err)
	metrics.ChatSends.WithLabelValues(s.opts.Assistant, outcome).Inc()
	if err != nil {
		log.WithField("outcome", outcome).Warnf("completion failed: %v", err)
	}

	s.mu.Lock()
	s.busy = false
	if s.closed {
		s.mu.Unlock()
		log.Info("session closed while awaiting completion, result discarded")
		return Exchange{User: userMsg, Reply: terminal, Outcome: outcome, Discarded: true}, true
	}
	s.messages, _ = removePending(s.messages, pending.ID)
	s.messages = append(s.messages, terminal)
	s.updatedAt = time.Now()
	s.version++
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return Exchange{User: userMsg, Reply: terminal, Outcome: outcome}, true
}

// SendPrompt 发送第 index 个预置问题，契约与 Send 完全相同
func (s *Session) SendPrompt(ctx context.Context, index int) (Exchange, bool) {
	if index < 0 || index >= len(s.opts.Prompts) {
		return Exchange{}, false
	}
	return s.Send(ctx, s.opts.Prompts[index])
}

// SendInput 发送当前输入缓冲区
func (s *Session) SendInput(ctx context.Context) (Exchange, bool) {
	s.mu.Lock()
	input := s.input
	s.mu.Unlock()
	return s.Send(ctx, input)
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	if s.closed || s.input == text {
		s.mu.Unlock()
		return
	}
	s.input = text
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) complete(ctx context.Context, req model.CompletionRequest) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panic: %v", r)
		}
	}()
	if s.completer == nil {
		return "", errors.New("no completer configured")
	}
	return s.completer.Complete(ctx, req)
}

func (s *Session) resolve(reply string, err error) (model.Message, string) {
	if err == nil {
		text := strings.TrimSpace(reply)
		if text == "" {
			text = s.opts.NoResponseText
		}
		return newMessage(model.SenderBot, text), OutcomeSuccess
	}

	var pe *model.ProviderError
	if errors.As(err, &pe) {
		text := strings.TrimSpace(pe.Message)
		if text == "" {
			text = s.opts.ProviderErrorText
		}
		return newMessage(model.SenderError, text), OutcomeProviderError
	}

	return newMessage(model.SenderError, s.opts.NetworkErrorText), OutcomeNetworkError
}

// Copy 把消息文本写入剪贴板，成功后在 CopyAckDuration 内标记该消息已复制。
// 找不到消息或剪贴板失败时返回 false，会话日志不受影响。
func (s *Session) Copy(messageID string) (string, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", false
	}
	text, found := s.lookupLocked(messageID)
	s.mu.Unlock()

	if !found {
		metrics.ChatCopies.WithLabelValues("not_found").Inc()
		return "", false
	}

	if err := s.writeClipboard(text); err != nil {
		metrics.ChatCopies.WithLabelValues("failed").Inc()
		logger.WithFields(logrus.Fields{
			"session_id": s.id,
			"message_id": messageID,
		}).Warnf("copy to clipboard failed: %v", err)
		return "", false
	}
	metrics.ChatCopies.WithLabelValues("copied").Inc()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return text, true
	}
	if s.copyTimer != nil {
		s.copyTimer.Stop()
	}
	s.copied = messageID
	s.copySeq++
	seq := s.copySeq
	s.copyTimer = time.AfterFunc(s.opts.CopyAckDuration, func() {
		s.clearCopied(seq)
	})
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return text, true
}

func (s *Session) writeClipboard(text string) error {
	if s.clipboard == nil {
		return errors.New("no clipboard configured")
	}
	return s.clipboard.WriteAll(text)
}

func (s *Session) clearCopied(seq uint64) {
	s.mu.Lock()
	if s.closed || s.copySeq != seq {
		s.mu.Unlock()
		return
	}
	s.copied = ""
	s.copyTimer = nil
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) lookupLocked(messageID string) (string, bool) {
	for _, m := range s.messages {
		if m.ID == messageID && !m.IsPending() {
			return m.Text, true
		}
	}
	return "", false
}

// Subscribe 注册状态变化回调，返回取消函数。回调在触发变化的 goroutine 中串行执行，
// 版本比已投递快照旧的快照会被丢弃。回调内不能调用 Send、SetInput、Copy 等会修改会话的方法。
func (s *Session) Subscribe(fn func(model.SessionSnapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(snap model.SessionSnapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if snap.Version <= s.lastNotified {
		return
	}
	s.lastNotified = snap.Version

	s.mu.Lock()
	fns := make([]func(model.SessionSnapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Close 对应视图卸载：停止复制提示定时器，之后不再修改任何状态。可重复调用。
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// CloseIfIdle 会话空闲且 updatedAt 早于 cutoff 时关闭并返回 true；检查与关闭在同一把锁内完成
func (s *Session) CloseIfIdle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.busy || !s.updatedAt.Before(cutoff) {
		return false
	}
	s.closeLocked()
	return true
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.copyTimer != nil {
		s.copyTimer.Stop()
		s.copyTimer = nil
	}
	s.copied = ""
	s.listeners = make(map[int]func(model.SessionSnapshot))
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages...)
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) CopiedMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copied
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() model.SessionSnapshot {
	return model.SessionSnapshot{
		SessionID:       s.id,
		Assistant:       s.opts.Assistant,
		Messages:        append([]model.Message(nil), s.messages...),
		Input:           s.input,
		Busy:            s.busy,
		CopiedMessageID: s.copied,
		Version:         s.version,
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}
}

func newMessage(sender model.Sender, text string) model.Message {
	return model.Message{
		ID:        newID(),
		Sender:    sender,
		Text:      text,
		Kind:      model.KindReal,
		Timestamp: time.Now(),
	}
}

// newID 时间有序的 UUIDv7，后创建的消息 id 更大
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

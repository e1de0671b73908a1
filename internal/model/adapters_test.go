package model

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"community-backend/internal/config"
	"community-backend/internal/utils"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"rate_limit"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	good, err := newOpenAICompleter(config.OpenAIConfig{APIKey: "good", BaseURL: srv.URL + "/v1", Model: "gpt"}, srv.Client())
	require.NoError(t, err)
	reply, err := good.Complete(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	bad, err := newOpenAICompleter(config.OpenAIConfig{APIKey: "bad", BaseURL: srv.URL + "/v1", Model: "gpt"}, srv.Client())
	require.NoError(t, err)
	_, err = bad.Complete(context.Background(), sampleRequest)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Equal(t, "Rate limit reached", pe.Message)
}

func TestOpenAIConvertMessagesSkipsEmptyAssistant(t *testing.T) {
	m := &openaiCompleter{}
	msgs := m.convertMessages(CompletionRequest{
		SystemInstruction: "sys",
		Turns: []Turn{
			{Role: RoleModel, Text: ""},
			{Role: RoleUser, Text: "hi"},
		},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
}

type fakeChatModel struct {
	out  *schema.Message
	err  error
	seen []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	f.seen = input
	return f.out, f.err
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func TestEinoCompleter(t *testing.T) {
	fake := &fakeChatModel{out: schema.AssistantMessage("reply", nil)}
	c := newEinoCompleter(fake, "qwen")

	reply, err := c.Complete(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, "reply", reply)
	require.Len(t, fake.seen, 3)
	assert.Equal(t, schema.System, fake.seen[0].Role)
	assert.Equal(t, schema.Assistant, fake.seen[1].Role)
	assert.Equal(t, schema.User, fake.seen[2].Role)
}

func TestEinoCompleterClassifiesErrors(t *testing.T) {
	transport := &fakeChatModel{err: &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}}
	_, err := newEinoCompleter(transport, "doubao").Complete(context.Background(), sampleRequest)
	var pe *ProviderError
	assert.False(t, errors.As(err, &pe))

	provider := &fakeChatModel{err: errors.New("InvalidParameter: model not found")}
	_, err = newEinoCompleter(provider, "doubao").Complete(context.Background(), sampleRequest)
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "model not found")
}

func TestDebugTransportRedaction(t *testing.T) {
	assert.Equal(t, "https://x/y?key=[REDACTED]&a=1", redactURL("https://x/y?key=secret&a=1"))
	assert.True(t, isSensitiveHeader("X-Goog-Api-Key"))
	assert.False(t, isSensitiveHeader("Content-Type"))
	assert.Equal(t, `{"api_key":"[REDACTED]","q":1}`, sanitizeBody([]byte(`{"api_key":"abc","q":1}`)))
}

func TestNewCompleterRejectsMissingKey(t *testing.T) {
	cfg := &config.Config{Model: config.ModelConfig{Provider: config.ProviderOpenAI}}
	_, err := NewCompleter(context.Background(), cfg)
	assert.Error(t, err)
}

func TestDoubaoModelHonoursTransportTimeout(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := config.DoubaoConfig{
		APIKey:  "ark-key",
		BaseURL: srv.URL,
		Model:   "doubao-test",
		Timeout: 50 * time.Millisecond,
	}
	chatModel, err := createDoubaoModel(context.Background(), cfg,
		utils.NewHTTPClient(cfg.Timeout, NewDebugTransport(utils.NewTransport(), config.ProviderDoubao, false)))
	require.NoError(t, err)

	start := time.Now()
	_, err = newEinoCompleter(chatModel, config.ProviderDoubao).Complete(context.Background(), sampleRequest)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"community-backend/internal/config"
	"community-backend/internal/model"
	"community-backend/internal/service"
	"community-backend/internal/storage"
	"community-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	reply string
	err   error
}

func (c scriptedCompleter) Complete(_ context.Context, _ model.CompletionRequest) (string, error) {
	return c.reply, c.err
}

// hookCompleter 在返回前执行 hook，用于模拟等待期间发生的操作
type hookCompleter struct {
	reply string
	hook  func()
}

func (c *hookCompleter) Complete(_ context.Context, _ model.CompletionRequest) (string, error) {
	if c.hook != nil {
		c.hook()
	}
	return c.reply, nil
}

func newTestRouter(t *testing.T, completer model.Completer) *gin.Engine {
	router, _ := newTestRouterWithService(t, completer)
	return router
}

func newTestRouterWithService(t *testing.T, completer model.Completer) (*gin.Engine, *service.ChatService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)

	chatService := service.NewChatService(cfg, storage.NewMemoryStorage(), completer, utils.ClientClipboard{})
	communityService := service.NewCommunityService(storage.NewMemoryCommunityStore())
	router := NewRouter(cfg, NewChatHandler(chatService, cfg.Chat.HeartbeatInterval), NewCommunityHandler(communityService))
	return router, chatService
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router http.Handler, assistant string) model.SessionSnapshot {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/assistants/"+assistant+"/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Session model.SessionSnapshot `json:"session"`
		Prompts []string              `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Prompts)
	return resp.Session
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{})

	w := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = doJSON(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAssistantsHidesInstruction(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{})

	w := doJSON(t, router, http.MethodGet, "/api/assistants", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "What are my basic rights?")
	assert.NotContains(t, w.Body.String(), "system_instruction")
}

func TestCreateSessionUnknownAssistant(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{})

	w := doJSON(t, router, http.MethodPost, "/api/assistants/unknown/sessions", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageSuccess(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{reply: "You have the right to free speech."})
	snap := createSession(t, router, "rights")
	require.Len(t, snap.Messages, 1)

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages", `{"text":"What are my rights?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, "success", resp.Outcome)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, model.SenderBot, resp.Reply.Sender)
	require.Len(t, resp.Session.Messages, 3)
	assert.Equal(t, "What are my rights?", resp.Session.Messages[1].Text)
	assert.False(t, resp.Session.Busy)
}

func TestSendMessageBlankIsIgnored(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{reply: "unused"})
	snap := createSession(t, router, "rights")

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages", `{"text":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)
	assert.Nil(t, resp.Reply)
	assert.Len(t, resp.Session.Messages, 1)
}

func TestSendUsesInputBuffer(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{reply: "ok"})
	snap := createSession(t, router, "community")

	w := doJSON(t, router, http.MethodPut, "/api/chat/sessions/"+snap.SessionID+"/input", `{"text":"from the buffer"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)
	assert.Equal(t, "from the buffer", resp.Session.Messages[1].Text)
	assert.Empty(t, resp.Session.Input)
}

func TestSendNetworkFailure(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{err: context.DeadlineExceeded})
	snap := createSession(t, router, "rights")

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "network_error", resp.Outcome)
	assert.Equal(t, model.SenderError, resp.Reply.Sender)
	assert.Contains(t, resp.Reply.Text, "Network error")
}

func TestSendPrompt(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{reply: "ok"})
	snap := createSession(t, router, "rights")

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/prompts/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, "What are my basic rights?", resp.Session.Messages[1].Text)

	w = doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/prompts/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendPromptSessionDeletedWhileAwaiting(t *testing.T) {
	completer := &hookCompleter{reply: "ok"}
	router, chatService := newTestRouterWithService(t, completer)
	snap := createSession(t, router, "rights")
	completer.hook = func() {
		require.NoError(t, chatService.DeleteSession(snap.SessionID))
	}

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/prompts/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, snap.SessionID, resp.Session.SessionID)

	w = doJSON(t, router, http.MethodGet, "/api/chat/sessions/"+snap.SessionID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCopyMessage(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{})
	snap := createSession(t, router, "rights")
	greeting := snap.Messages[0]

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages/"+greeting.ID+"/copy", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.CopyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Copied)
	assert.Equal(t, greeting.Text, resp.Text)

	w = doJSON(t, router, http.MethodGet, "/api/chat/sessions/"+snap.SessionID, "")
	var current model.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Equal(t, greeting.ID, current.CopiedMessageID)

	w = doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages/nope/copy", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Copied)
}

func TestDeleteSession(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{})
	snap := createSession(t, router, "rights")

	w := doJSON(t, router, http.MethodDelete, "/api/chat/sessions/"+snap.SessionID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/chat/sessions/"+snap.SessionID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamMessage(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{reply: "streamed answer"})
	snap := createSession(t, router, "rights")

	w := doJSON(t, router, http.MethodPost, "/api/chat/sessions/"+snap.SessionID+"/messages/stream", `{"text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var events []string
	var snapshots []model.SessionSnapshot
	var result model.SendResponse
	var event string
	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			if event == "" {
				events = append(events, data)
				continue
			}
			events = append(events, event)
			switch event {
			case "snapshot":
				var s model.SessionSnapshot
				require.NoError(t, json.Unmarshal([]byte(data), &s))
				snapshots = append(snapshots, s)
			case "result":
				require.NoError(t, json.Unmarshal([]byte(data), &result))
			}
			event = ""
		}
	}

	require.Len(t, snapshots, 2)
	assert.True(t, snapshots[0].Busy)
	assert.True(t, snapshots[0].Messages[2].IsPending())
	assert.False(t, snapshots[1].Busy)
	assert.Equal(t, "streamed answer", snapshots[1].Messages[2].Text)

	assert.True(t, result.Accepted)
	assert.Equal(t, "[DONE]", events[len(events)-1])
}

func TestCommunityEndpoints(t *testing.T) {
	router := newTestRouter(t, scriptedCompleter{})

	w := doJSON(t, router, http.MethodPost, "/api/communities", `{"name":"Garden Club","category":"hobby","user_id":"alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var community model.Community
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &community))

	w = doJSON(t, router, http.MethodPost, "/api/communities", `{"name":"garden club"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/communities", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	base := "/api/communities/" + community.ID
	w = doJSON(t, router, http.MethodPost, base+"/join", `{"user_id":"bob"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, base+"/join", `{"user_id":"bob"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, base+"/announcements", `{"user_id":"carol","text":"hi"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, router, http.MethodPost, base+"/announcements", `{"user_id":"bob","text":"Meetup Saturday"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, base+"/announcements", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Meetup Saturday")

	w = doJSON(t, router, http.MethodGet, "/api/communities?member=bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Garden Club")

	w = doJSON(t, router, http.MethodPost, base+"/leave", `{"user_id":"bob"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/communities/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

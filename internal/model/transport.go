package model

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"community-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

const maxLoggedBody = 4096

var sensitiveJSONField = regexp.MustCompile(`(?i)"(api_key|apikey|password|secret|token)"\s*:\s*"[^"]*"`)

// DebugTransport 调试用传输层：在 debug 开启时记录请求（敏感头和字段已脱敏）
type DebugTransport struct {
	base         http.RoundTripper
	debugEnabled bool
	provider     string
}

func NewDebugTransport(base http.RoundTripper, provider string, debugEnabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{
		base:         base,
		debugEnabled: debugEnabled,
		provider:     provider,
	}
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.debugEnabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.debugEnabled {
		logger.WithFields(logrus.Fields{"provider": t.provider}).Errorf("completion request failed: %v", err)
	}
	if resp != nil && t.debugEnabled {
		logger.WithFields(logrus.Fields{
			"provider": t.provider,
			"status":   resp.StatusCode,
		}).Debug("completion response received")
	}

	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"provider": t.provider,
		"method":   req.Method,
		"url":      redactURL(req.URL.String()),
	}

	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			headers[name] = "[REDACTED]"
		} else {
			headers[name] = strings.Join(values, ", ")
		}
	}
	fields["headers"] = headers

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			logger.WithFields(fields).Errorf("failed to read request body: %v", err)
			return
		}
		// 恢复请求体，以免影响实际请求
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		fields["body_size"] = len(bodyBytes)
		fields["body"] = sanitizeBody(bodyBytes)
	}

	logger.WithFields(fields).Debug("completion request")
}

func sanitizeBody(body []byte) string {
	s := sensitiveJSONField.ReplaceAllString(string(body), `"$1":"[REDACTED]"`)
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "...(truncated)"
	}
	return s
}

func redactURL(raw string) string {
	if i := strings.Index(raw, "key="); i >= 0 {
		end := strings.IndexByte(raw[i:], '&')
		if end < 0 {
			return raw[:i] + "key=[REDACTED]"
		}
		return raw[:i] + "key=[REDACTED]" + raw[i+end:]
	}
	return raw
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range []string{"authorization", "x-api-key", "x-goog-api-key", "x-auth-token", "cookie"} {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}

package model

import (
	"context"
	"fmt"
)

// 对话轮次的角色，与远端补全接口的 role 取值一致
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Turn struct {
	Role string
	Text string
}

type CompletionRequest struct {
	SystemInstruction string
	Turns             []Turn
}

// Completer 远端补全接口：一次请求，一次结果
//
// 返回 *ProviderError 表示服务端明确报告失败；其余错误一律视为传输失败。
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ProviderError 远端可达但返回了失败（非 2xx、error 字段或没有候选结果）
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error (status %d)", e.Status)
	}
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}

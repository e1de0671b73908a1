package chat

import "community-backend/internal/model"

// BuildHistory 把消息日志转换为远端接口需要的轮次序列。
// system 消息和占位消息不发送；user 映射为请求方角色，其余发送方都映射为模型角色。
func BuildHistory(messages []model.Message) []model.Turn {
	turns := make([]model.Turn, 0, len(messages))
	for _, m := range messages {
		if m.IsPending() || m.Sender == model.SenderSystem {
			continue
		}
		role := model.RoleModel
		if m.Sender == model.SenderUser {
			role = model.RoleUser
		}
		turns = append(turns, model.Turn{Role: role, Text: m.Text})
	}
	return turns
}

// removePending 删除 id 匹配的占位消息，最多删除一条，真实消息永远不会被删除
func removePending(messages []model.Message, id string) ([]model.Message, bool) {
	for i, m := range messages {
		if m.ID == id && m.IsPending() {
			return append(messages[:i:i], messages[i+1:]...), true
		}
	}
	return messages, false
}

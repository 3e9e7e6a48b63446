package inflight

import "context"

// Guard 防止同一患者的同一条提醒在多个批次中同时发送。
type Guard interface {
	// TryAcquire 获取成功返回 true，已被占用返回 false
	TryAcquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key 同一关联维度（患者 + 模板 + 渠道）的占用 key
func Key(patientId uint64, templateName string, channel string) string {
	return templateName + ":" + channel + ":" + uitoa(patientId)
}

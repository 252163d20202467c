package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// NewOpID 生成一个新的操作 ID，用于串联一次后台同步的日志
func NewOpID() string {
	return uuid.NewString()
}

// FromContext 从 context 中获取 op_id
func FromContext(ctx context.Context) string {
	if opID, ok := ctx.Value(ctxKey{}).(string); ok {
		return opID
	}
	return ""
}

// WithContext 将 op_id 添加到 context 中
func WithContext(ctx context.Context, opID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, opID)
}

// HeaderName 返回请求 ID 的 HTTP header 名称
func HeaderName() string {
	return "X-Request-ID"
}

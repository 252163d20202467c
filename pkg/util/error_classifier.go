package util

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"titan/pkg/circuitbreaker"
)

// ClassifyError 将远程调用错误归类，用作指标标签和日志字段
// 返回值：timeout, canceled, breaker_open, not_found, constraint, network, db, unknown
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	// 熔断器打开 - 未发起真实调用
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "breaker_open"
	}

	// Context 超时 / 取消
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	// 记录不存在
	if errors.Is(err, pgx.ErrNoRows) {
		return "not_found"
	}

	// Postgres 服务端错误：23xxx 为约束冲突
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "23") {
			return "constraint"
		}
		return "db"
	}

	// 网络错误
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "dial") {
		return "network"
	}

	return "unknown"
}

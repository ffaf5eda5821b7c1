package nodeparams

import (
	"fmt"
	"log/slog"
)

const maskedSecret = "****"

// String 返回包含全部字段名与当前值的诊断字符串。
//
// 注意：密码以明文输出。写日志时应使用 Redacted() 或直接把 NodeParams
// 作为 clog.Any 字段传入（由 LogValue 屏蔽密码）。
func (p *NodeParams) String() string {
	if p == nil {
		return "NodeParams<nil>"
	}
	return p.format(p.password)
}

// Redacted 返回与 String 相同格式的字符串，但密码被屏蔽
func (p *NodeParams) Redacted() string {
	if p == nil {
		return "NodeParams<nil>"
	}
	return p.format(mask(p.password))
}

// LogValue 实现 slog.LogValuer，密码被屏蔽
func (p *NodeParams) LogValue() slog.Value {
	if p == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("address", p.address),
		slog.String("admin_address", p.adminAddress),
		slog.String("username", p.username),
		slog.String("password", mask(p.password)),
		slog.Int("retries", p.retries),
		slog.Int64("retry_delay_seconds", p.retryDelaySeconds),
		slog.Bool("lazy", p.lazy),
		slog.String("service_type", string(p.serviceType)),
	)
}

func (p *NodeParams) format(password string) string {
	return fmt.Sprintf(
		"NodeParams{address=%q, adminAddress=%q, username=%q, password=%q, retries=%d, retryDelaySeconds=%d, lazy=%t, serviceType=%q}",
		p.address, p.adminAddress, p.username, password,
		p.retries, p.retryDelaySeconds, p.lazy, string(p.serviceType),
	)
}

// mask 屏蔽非空密码，空密码保持为空以便区分"未设置"
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return maskedSecret
}

// Package metrics 提供基于 OpenTelemetry 的指标收集能力，通过 Prometheus 格式暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{Enabled: true, Addr: ":9090"})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	loads, _ := meter.Counter("nodeconf_nodes_loads", "节点配置加载次数")
//	loads.Inc(ctx, metrics.L("result", "ok"))
//
// 每个 Meter 使用独立的 Prometheus Registry，多个实例之间互不干扰。
package metrics

import (
	"context"
	"net/http"
)

// Counter 计数器接口
// 用于记录只能增加的累计值，例如加载次数、失败次数
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值，负数会被忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口
// 用于记录可以任意增减的瞬时值，例如当前配置的节点数
type Gauge interface {
	// Set 将 gauge 设置为给定的值
	Set(ctx context.Context, val float64, labels ...Label)

	// Inc 将 gauge 增加 1
	Inc(ctx context.Context, labels ...Label)

	// Dec 将 gauge 减少 1
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口
// 用于记录值的分布情况，例如加载耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂接口
//
// 同名指标重复创建时返回同一个底层指标，可以在多处调用。
// 创建的指标是并发安全的。
type Meter interface {
	// Counter 创建计数器实例
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)

	// Gauge 创建仪表盘实例
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)

	// Histogram 创建直方图实例
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回以 Prometheus 文本格式输出指标的 HTTP Handler
	Handler() http.Handler

	// Shutdown 关闭 Meter，停止 HTTP 服务并刷新所有指标
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项函数类型
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 指标的单位，建议使用 UCUM 代码，例如 "s"、"By"
	Unit string
}

// WithUnit 设置指标的单位
//
//	histogram, _ := meter.Histogram("nodeconf_nodes_load_duration", "加载耗时", metrics.WithUnit("s"))
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

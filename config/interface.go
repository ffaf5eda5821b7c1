// Package config 为 nodeconf 提供统一的配置管理能力，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件、命令行 flag
//   - 配置优先级：flag > 环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新支持：监听配置文件变化，按 key 通知订阅者
//   - 并发安全：读取方法可在重载进行时从任意协程调用
//
// 基本使用：
//
//	loader := config.MustLoad(
//		config.WithConfigName("config"),
//		config.WithConfigPaths("./config"),
//		config.WithEnvPrefix("NODECONF"),
//	)
//
//	var props nodeparams.Properties
//	_ = loader.UnmarshalKey("nodeconf.nodes.partya", &props)
//
//	// 监听配置变化
//	ch, _ := loader.Watch(ctx, "nodeconf.nodes")
//	for event := range ch {
//		fmt.Printf("配置变化: %s\n", event.Key)
//	}
package config

import (
	"context"
	"time"
)

// Loader 定义配置加载器的核心行为
// 职责：加载、解析和监听配置变化
type Loader interface {
	// Load 加载配置并初始化内部状态，找到配置文件时监听其变化直到 ctx 结束
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// IsSet 报告 key 是否在任一配置源中出现
	IsSet(key string) bool

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听，取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file"
	Timestamp time.Time
}

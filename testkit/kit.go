// Package testkit 提供测试共用的依赖：日志、上下文、唯一 ID 与配置文件夹具。
package testkit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ceyewan/nodeconf/clog"
	"github.com/ceyewan/nodeconf/config"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
}

// NewKit 返回一个包含默认依赖的测试工具包，Ctx 随测试结束取消
func NewKit(t *testing.T) *Kit {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Kit{
		Ctx:    ctx,
		Logger: NewLogger(),
	}
}

// NewLogger 返回一个用于测试的 logger
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "console", Output: "stderr"})
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的配置文件名、环境变量前缀，避免测试间冲突
func NewID() string {
	return uuid.New().String()[0:8]
}

// WriteYAML 将 v 以 YAML 写入 dir/name，返回文件路径
func WriteYAML(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// NewLoader 在临时目录写入 config.yaml 并返回已加载的 Loader，文件监听随测试结束停止。
// 环境变量前缀为随机值，避免与真实环境冲突；前缀通过第二个返回值给出。
func NewLoader(t *testing.T, doc any, opts ...config.Option) (config.Loader, string) {
	t.Helper()
	dir := t.TempDir()
	WriteYAML(t, dir, "config.yaml", doc)

	prefix := "NODECONF_TEST_" + strings.ToUpper(NewID())
	base := []config.Option{
		config.WithConfigPaths(dir),
		config.WithEnvPrefix(prefix),
	}
	loader, err := config.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("create loader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := loader.Load(ctx); err != nil {
		t.Fatalf("load config: %v", err)
	}
	return loader, prefix
}

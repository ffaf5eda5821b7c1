package config

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/ceyewan/nodeconf/clog"
)

// Option 配置选项模式
type Option func(*Config)

// Config 配置加载器的选项
type Config struct {
	Name      string         // 配置文件名称（不含扩展名）
	File      string         // 显式指定的配置文件路径，设置后忽略 Name 与 Paths
	Paths     []string       // 配置文件搜索路径
	FileType  string         // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string         // 环境变量前缀
	Flags     *pflag.FlagSet // 绑定的命令行 flag（可选）
	Logger    clog.Logger
}

// defaultOptions 返回默认选项
func defaultOptions() *Config {
	return &Config{
		Name:      "config",
		Paths:     []string{".", "./config"},
		FileType:  "yaml",
		EnvPrefix: "NODECONF",
		Logger:    clog.Discard(),
	}
}

// validate 规范化选项
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	if len(c.Paths) == 0 {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "NODECONF"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	if c.Logger == nil {
		c.Logger = clog.Discard()
	}
	return nil
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithConfigPath 添加配置文件搜索路径
func WithConfigPath(path string) Option {
	return func(c *Config) {
		c.Paths = append(c.Paths, path)
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(c *Config) {
		c.Paths = paths
	}
}

// WithConfigFile 指定配置文件路径，文件不存在时 Load 返回 ErrConfigNotFound
func WithConfigFile(path string) Option {
	return func(c *Config) {
		c.File = path
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(c *Config) {
		c.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.EnvPrefix = prefix
	}
}

// WithFlags 绑定命令行 flag，flag 名即配置 key
func WithFlags(flags *pflag.FlagSet) Option {
	return func(c *Config) {
		c.Flags = flags
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger.WithNamespace("config")
		}
	}
}

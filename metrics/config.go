package metrics

// Config 指标系统的配置
//
// 可以直接从配置文件中加载：
//
//	var cfg metrics.Config
//	_ = loader.UnmarshalKey("metrics", &cfg)
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "nodeconf"
//	  version: "v1.0.0"
//	  addr: ":9090"
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 Discard()，所有记录都是空操作
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName 写入 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name" json:"serviceName" yaml:"serviceName"`

	// Version 写入 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version" json:"version" yaml:"version"`

	// Addr 暴露 Prometheus 指标的监听地址，为空时不监听
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr"`

	// Path 暴露 Prometheus 指标的 HTTP 路径，默认 "/metrics"
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

func (c *Config) validate() {
	if c.ServiceName == "" {
		c.ServiceName = "nodeconf"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

package config

import "context"

// New 创建配置加载器，尚未读取任何配置源。
func New(opts ...Option) (Loader, error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newLoader(cfg), nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于初始化阶段，文件监听在进程生命周期内有效。
func MustLoad(opts ...Option) Loader {
	loader, err := New(opts...)
	if err != nil {
		panic(err)
	}
	if err := loader.Load(context.Background()); err != nil {
		panic(err)
	}
	return loader
}

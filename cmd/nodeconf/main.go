// nodeconf 读取应用配置中的节点连接参数并打印。
//
// 用法：
//
//	nodeconf --config-path ./config --key nodeconf.nodes
//	nodeconf --show-secrets
//	nodeconf --watch --clog.level debug
//	nodeconf --config /etc/nodeconf/nodes.yaml
//
// 退出码：0 成功，1 其它错误，2 配置文件缺失或无效，3 节点配置无法解码，
// 4 服务类型未注册。
//
// 配置按 flag > 环境变量 > .env > config.<env>.yaml > config.yaml 的优先级合并，
// 环境变量前缀默认为 NODECONF。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ceyewan/nodeconf/clog"
	"github.com/ceyewan/nodeconf/config"
	"github.com/ceyewan/nodeconf/metrics"
	"github.com/ceyewan/nodeconf/nodeparams"
	"github.com/ceyewan/nodeconf/nodes"
	"github.com/ceyewan/nodeconf/registry"
	"github.com/ceyewan/nodeconf/xerrors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "nodeconf:", err)
		os.Exit(exitCode(err))
	}
}

const (
	exitError       = 1
	exitConfig      = 2
	exitDecode      = 3
	exitServiceType = 4
)

// exitCode 由错误码映射退出状态
func exitCode(err error) int {
	code := xerrors.GetCode(err)
	switch {
	case err == nil:
		return 0
	case config.IsNotFound(err):
		return exitConfig
	case code == nodes.CodeDecode:
		return exitDecode
	case code == registry.CodeUnknownServiceType,
		code == registry.CodeDuplicateServiceType,
		code == registry.CodeNilFactory:
		return exitServiceType
	case config.IsInvalidInput(err):
		return exitConfig
	default:
		return exitError
	}
}

type cliOptions struct {
	file        string
	paths       []string
	name        string
	envPrefix   string
	key         string
	showSecrets bool
	watch       bool
}

func parseFlags(args []string) (*pflag.FlagSet, *cliOptions, error) {
	o := &cliOptions{}
	fs := pflag.NewFlagSet("nodeconf", pflag.ContinueOnError)
	fs.StringVar(&o.file, "config", "", "配置文件路径，设置后忽略 --config-path 与 --config-name")
	fs.StringSliceVar(&o.paths, "config-path", []string{".", "./config"}, "配置文件搜索路径")
	fs.StringVar(&o.name, "config-name", "config", "配置文件名（不含扩展名）")
	fs.StringVar(&o.envPrefix, "env-prefix", "NODECONF", "环境变量前缀")
	fs.StringVar(&o.key, "key", nodes.DefaultKey, "节点集合的根 key")
	fs.BoolVar(&o.showSecrets, "show-secrets", false, "输出明文密码")
	fs.BoolVar(&o.watch, "watch", false, "持续监听配置变化")
	// 以下 flag 直接覆盖同名配置项
	fs.String("clog.level", "", "日志级别 (debug|info|warn|error)")
	fs.String("clog.format", "", "日志格式 (json|console)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fs, o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs, o, err := parseFlags(args)
	if err != nil {
		return err
	}

	loader, err := config.New(
		config.WithConfigName(o.name),
		config.WithConfigPaths(o.paths...),
		config.WithConfigFile(o.file),
		config.WithEnvPrefix(o.envPrefix),
		config.WithFlags(fs),
	)
	if err != nil {
		return err
	}
	if err := loader.Load(ctx); err != nil {
		return xerrors.Wrap(err, "load config")
	}

	logger, err := newLogger(loader)
	if err != nil {
		return err
	}

	meter, err := newMeter(loader, logger)
	if err != nil {
		return err
	}
	defer meter.Shutdown(context.Background())

	reg := registry.New[*nodeparams.NodeParams](registry.WithLogger(logger))
	reg.MustRegister(nodeparams.DefaultServiceType, func(_ string, p *nodeparams.NodeParams) (*nodeparams.NodeParams, error) {
		return p, nil
	})

	nodeOpts := []nodes.Option{nodes.WithKey(o.key), nodes.WithLogger(logger), nodes.WithMeter(meter)}
	if !o.watch {
		ns, err := nodes.Load(loader, nodeOpts...)
		if err != nil {
			return err
		}
		return render(stdout, reg, ns, o.showSecrets)
	}

	updates, err := nodes.Watch(ctx, loader, nodeOpts...)
	if err != nil {
		return err
	}
	for ns := range updates {
		if err := render(stdout, reg, ns, o.showSecrets); err != nil {
			logger.Warn("nodes snapshot rejected", clog.Error(err))
		}
	}
	return nil
}

// newLogger 由 clog 配置段创建 logger，输出到 stderr 以免混入节点列表
func newLogger(loader config.Loader) (clog.Logger, error) {
	cfg := clog.NewDevDefaultConfig()
	if loader.IsSet("clog") {
		if err := loader.UnmarshalKey("clog", cfg); err != nil {
			return nil, xerrors.Wrap(err, "decode clog config")
		}
	}
	if v, ok := loader.Get("clog.level").(string); ok && v != "" {
		cfg.Level = v
	}
	if v, ok := loader.Get("clog.format").(string); ok && v != "" {
		cfg.Format = v
	}
	return clog.New(cfg, clog.WithWriter(os.Stderr), clog.WithNamespace("nodeconf"))
}

// newMeter 由 metrics 配置段创建指标收集器，未配置时不收集
func newMeter(loader config.Loader, logger clog.Logger) (metrics.Meter, error) {
	if !loader.IsSet("metrics") {
		return metrics.Discard(), nil
	}
	var cfg metrics.Config
	if err := loader.UnmarshalKey("metrics", &cfg); err != nil {
		return nil, xerrors.Wrap(err, "decode metrics config")
	}
	return metrics.New(&cfg, metrics.WithLogger(logger))
}

// render 校验每个节点的服务类型已注册，然后逐行输出
func render(w io.Writer, reg *registry.Registry[*nodeparams.NodeParams], ns *nodes.Nodes, showSecrets bool) error {
	built, err := reg.Build(ns.All())
	if err != nil {
		return err
	}
	if len(built) == 0 {
		_, err := fmt.Fprintln(w, "no nodes configured")
		return err
	}
	for _, name := range ns.Names() {
		p := built[name]
		line := p.Redacted()
		if showSecrets {
			line = p.String()
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", name, line); err != nil {
			return err
		}
	}
	return nil
}

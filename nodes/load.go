package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/ceyewan/nodeconf/clog"
	"github.com/ceyewan/nodeconf/config"
	"github.com/ceyewan/nodeconf/metrics"
	"github.com/ceyewan/nodeconf/nodeparams"
	"github.com/ceyewan/nodeconf/xerrors"
)

// CodeDecode ErrDecode 的错误码
const CodeDecode = "NODE_DECODE"

// ErrDecode 节点配置无法解码为 NodeParams
var ErrDecode = xerrors.WithCode(
	xerrors.Wrap(xerrors.ErrInvalidInput, "nodes: invalid node configuration"), CodeDecode)

// propertyKeys 是 nodeparams.Properties 支持的全部字段 key
var propertyKeys = []string{
	"address",
	"admin_address",
	"username",
	"password",
	"retries",
	"retry_delay_seconds",
	"lazy",
	"service_type",
	"primary_service_type",
}

type options struct {
	key    string
	logger clog.Logger
	meter  metrics.Meter
}

// Option 配置节点加载的选项
type Option func(*options)

// WithKey 设置节点集合的根 key，默认 DefaultKey
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("nodes")
		}
	}
}

// WithMeter 设置指标收集器，记录加载次数、耗时与节点数
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{key: DefaultKey, logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load 从已加载的配置中读取节点集合。
//
// 根 key 不存在时返回空集合；节点或字段取值类型不匹配时返回 ErrDecode。
// 缺省字段取 nodeparams.New() 的静态默认值，不做其它校验。
func Load(loader config.Loader, opts ...Option) (*Nodes, error) {
	o := applyOptions(opts...)
	inst := newInstruments(o)

	start := time.Now()
	nodes, err := load(loader, o.key)
	inst.observe(start, "load", nodes, err)
	if err != nil {
		o.logger.Error("failed to load nodes", clog.String("key", o.key), clog.Error(err))
		return nil, err
	}
	o.logger.Info("nodes loaded", clog.String("key", o.key), clog.Int("count", nodes.Len()))
	for _, name := range nodes.names {
		o.logger.Debug("node configured", clog.String("node", name), clog.Any("params", nodes.byName[name]))
	}
	return nodes, nil
}

func load(loader config.Loader, key string) (*Nodes, error) {
	if !loader.IsSet(key) {
		return New(nil), nil
	}

	raw, ok := loader.Get(key).(map[string]any)
	if !ok {
		return nil, xerrors.Wrapf(ErrDecode, "%s is not a mapping", key)
	}

	m := make(map[string]*nodeparams.NodeParams, len(raw))
	for name, v := range raw {
		if _, ok := v.(map[string]any); !ok && v != nil {
			return nil, xerrors.Wrapf(ErrDecode, "node %s is not a mapping", name)
		}
		props, err := decodeNode(loader, key+"."+name)
		if err != nil {
			return nil, xerrors.Wrapf(ErrDecode, "node %s: %v", name, err)
		}
		m[name] = props.Params()
	}
	return New(m), nil
}

// decodeNode 逐字段读取节点配置，使环境变量与 flag 覆盖生效
func decodeNode(loader config.Loader, nodeKey string) (nodeparams.Properties, error) {
	values := make(map[string]any, len(propertyKeys))
	for _, field := range propertyKeys {
		fieldKey := nodeKey + "." + field
		if loader.IsSet(fieldKey) {
			values[field] = loader.Get(fieldKey)
		}
	}

	var props nodeparams.Properties
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &props,
	})
	if err != nil {
		return props, err
	}
	if err := decoder.Decode(values); err != nil {
		return props, err
	}
	return props, nil
}

// Watch 在配置文件变化时推送新的节点集合快照。
//
// 首个快照为当前配置；之后每次根 key 下的取值变化都会重新加载。
// 重新加载失败时记录日志并保留上一个快照。ctx 取消后通道关闭。
func Watch(ctx context.Context, loader config.Loader, opts ...Option) (<-chan *Nodes, error) {
	o := applyOptions(opts...)

	current, err := Load(loader, opts...)
	if err != nil {
		return nil, err
	}

	events, err := loader.Watch(ctx, o.key)
	if err != nil {
		return nil, xerrors.Wrapf(err, "watch %s", o.key)
	}

	out := make(chan *Nodes, 1)
	out <- current
	inst := newInstruments(o)
	watching := metrics.L("key", o.key)
	inst.watchers.Inc(ctx, watching)

	go func() {
		defer close(out)
		defer inst.watchers.Dec(context.Background(), watching)
		for range events {
			start := time.Now()
			next, err := load(loader, o.key)
			inst.observe(start, "reload", next, err)
			if err != nil {
				o.logger.Error("failed to reload nodes, keeping previous snapshot", clog.Error(err))
				continue
			}
			added, removed, changed := Diff(current, next)
			inst.changed(added, removed, changed)
			o.logger.Info("nodes reloaded",
				clog.String("added", fmt.Sprint(added)),
				clog.String("removed", fmt.Sprint(removed)),
				clog.String("changed", fmt.Sprint(changed)))
			current = next

			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// instruments 节点加载相关的指标
type instruments struct {
	loads    metrics.Counter
	duration metrics.Histogram
	count    metrics.Gauge
	watchers metrics.Gauge
	changes  metrics.Counter
}

func newInstruments(o *options) *instruments {
	inst := &instruments{}
	var errs []error
	var err error
	inst.loads, err = o.meter.Counter("nodeconf_nodes_loads", "节点配置加载次数")
	errs = append(errs, err)
	inst.duration, err = o.meter.Histogram("nodeconf_nodes_load_duration", "节点配置加载耗时", metrics.WithUnit("s"))
	errs = append(errs, err)
	inst.count, err = o.meter.Gauge("nodeconf_nodes_configured", "当前配置的节点数")
	errs = append(errs, err)
	inst.watchers, err = o.meter.Gauge("nodeconf_nodes_watchers", "活跃的节点配置监听数")
	errs = append(errs, err)
	inst.changes, err = o.meter.Counter("nodeconf_nodes_changes", "重载时新增、删除或变化的节点数")
	errs = append(errs, err)

	if err := xerrors.Combine(errs...); err != nil {
		o.logger.Warn("failed to create nodes metrics, metrics disabled", clog.Error(err))
		return newInstruments(&options{logger: o.logger, meter: metrics.Discard()})
	}
	return inst
}

func (i *instruments) observe(start time.Time, op string, nodes *Nodes, err error) {
	ctx := context.Background()
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.loads.Inc(ctx, metrics.L("op", op), metrics.L("result", result))
	i.duration.Record(ctx, time.Since(start).Seconds(), metrics.L("op", op))
	if err == nil {
		i.count.Set(ctx, float64(nodes.Len()))
	}
}

// changed 按变化类型累加重载前后的节点差异
func (i *instruments) changed(added, removed, changed []string) {
	ctx := context.Background()
	i.changes.Add(ctx, float64(len(added)), metrics.L("kind", "added"))
	i.changes.Add(ctx, float64(len(removed)), metrics.L("kind", "removed"))
	i.changes.Add(ctx, float64(len(changed)), metrics.L("kind", "changed"))
}

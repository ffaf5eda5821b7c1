// Package registry 按服务类型为每个节点实例化对应的服务实现。
//
// 节点配置中的 service_type 只是一个注册表键。应用在启动时为每种服务类型
// 注册一个工厂，然后用 Build 为配置中的全部节点创建服务：
//
//	reg := registry.New[*RPCClient](registry.WithLogger(logger))
//	reg.MustRegister(nodeparams.DefaultServiceType, newDefaultClient)
//	reg.MustRegister("audited", newAuditedClient)
//
//	clients, err := reg.Build(nodes.All())
//
// 空的服务类型按 nodeparams.DefaultServiceType 处理。
// 引用了未注册类型的节点返回 ErrUnknownServiceType。
//
// Registry 的所有方法都是并发安全的。
package registry

import (
	"sort"
	"sync"

	"github.com/ceyewan/nodeconf/clog"
	"github.com/ceyewan/nodeconf/nodeparams"
	"github.com/ceyewan/nodeconf/xerrors"
)

// Factory 根据节点名和连接参数创建服务实例。
// p 是调用方持有参数的副本，工厂可以保留它。
type Factory[T any] func(name string, p *nodeparams.NodeParams) (T, error)

// Registry 服务类型到工厂的映射
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[nodeparams.ServiceType]Factory[T]
	logger    clog.Logger
}

// New 创建一个空的 Registry
func New[T any](opts ...Option) *Registry[T] {
	opt := &options{logger: clog.Discard()}
	for _, o := range opts {
		o(opt)
	}
	return &Registry[T]{
		factories: make(map[nodeparams.ServiceType]Factory[T]),
		logger:    opt.logger,
	}
}

// Register 为服务类型注册工厂，同一类型只能注册一次
func (r *Registry[T]) Register(st nodeparams.ServiceType, f Factory[T]) error {
	if f == nil {
		return xerrors.Wrapf(ErrNilFactory, "service type %q", st)
	}
	st = normalize(st)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[st]; ok {
		return xerrors.Wrapf(ErrDuplicateServiceType, "service type %q", st)
	}
	r.factories[st] = f
	r.logger.Debug("service type registered", clog.String("service_type", st.String()))
	return nil
}

// MustRegister 与 Register 相同，失败时 panic
func (r *Registry[T]) MustRegister(st nodeparams.ServiceType, f Factory[T]) {
	if err := r.Register(st, f); err != nil {
		panic(err)
	}
}

// Lookup 返回服务类型对应的工厂
func (r *Registry[T]) Lookup(st nodeparams.ServiceType) (Factory[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[normalize(st)]
	return f, ok
}

// ServiceTypes 返回已注册的服务类型，按字典序排列
func (r *Registry[T]) ServiceTypes() []nodeparams.ServiceType {
	r.mu.RLock()
	out := make([]nodeparams.ServiceType, 0, len(r.factories))
	for st := range r.factories {
		out = append(out, st)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New 按节点的服务类型创建单个服务实例
func (r *Registry[T]) New(name string, p *nodeparams.NodeParams) (T, error) {
	var zero T
	if p == nil {
		p = nodeparams.New()
	}
	st := normalize(p.ServiceType())

	f, ok := r.Lookup(st)
	if !ok {
		return zero, xerrors.Wrapf(ErrUnknownServiceType, "node %s: service type %q", name, st)
	}

	svc, err := f(name, p.Clone())
	if err != nil {
		return zero, xerrors.Wrapf(err, "node %s: create %q service", name, st)
	}
	return svc, nil
}

// Build 为每个节点创建服务实例。
//
// 所有节点都会被尝试；任一节点失败时返回合并后的错误和 nil 映射。
func (r *Registry[T]) Build(nodes map[string]*nodeparams.NodeParams) (map[string]T, error) {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]T, len(nodes))
	var errs []error
	for _, name := range names {
		svc, err := r.New(name, nodes[name])
		if err != nil {
			r.logger.Error("failed to create node service", clog.String("node", name), clog.Error(err))
			errs = append(errs, err)
			continue
		}
		out[name] = svc
		r.logger.Info("node service created", clog.String("node", name))
	}

	if err := xerrors.Combine(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func normalize(st nodeparams.ServiceType) nodeparams.ServiceType {
	if st.IsZero() {
		return nodeparams.DefaultServiceType
	}
	return st
}

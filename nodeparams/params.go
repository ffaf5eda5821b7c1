// Package nodeparams 定义连接单个远程节点服务所需的参数。
//
// NodeParams 只是一个类型化的参数集合：它不建立连接、不执行重试、
// 也不校验取值。地址、凭证、重试策略与服务类型由调用方（引导层）
// 写入，再交给节点服务客户端读取。
//
// 基本使用：
//
//	p := nodeparams.New()
//	p.SetAddress("localhost:10006")
//	p.SetUsername("user1")
//	p.SetPassword("test")
//
//	// 或一次性指定六个连接字段
//	p = nodeparams.NewWith("localhost:10006", "user1", "test", "localhost:10046", 3, 5)
//
// 并发：NodeParams 不做任何同步，同一实例应视为单一所有者。
package nodeparams

import "time"

const (
	// DefaultRetries 默认最大连接尝试次数
	DefaultRetries = 6
	// DefaultRetryDelaySeconds 默认两次尝试之间的间隔（秒）
	DefaultRetryDelaySeconds int64 = 10
	// DefaultLazy 默认在构造时建立连接，而非首次使用时
	DefaultLazy = false
)

// NodeParams 单个节点服务端点的连接参数。
//
// 所有 setter 原样保存传入值：空字符串、负数均被接受。
// nil 实例的 getter 返回 New() 的默认值，setter 不做任何事。
type NodeParams struct {
	address           string
	adminAddress      string
	username          string
	password          string
	retries           int
	retryDelaySeconds int64
	lazy              bool
	serviceType       ServiceType
}

// New 返回只带默认值的 NodeParams：
// retries=6, retryDelaySeconds=10, lazy=false, serviceType=DefaultServiceType，
// 其余字符串字段为空。
func New() *NodeParams {
	return &NodeParams{
		retries:           DefaultRetries,
		retryDelaySeconds: DefaultRetryDelaySeconds,
		lazy:              DefaultLazy,
		serviceType:       DefaultServiceType,
	}
}

// NewWith 按给定值设置地址、凭证、管理地址与重试策略，
// lazy 与 serviceType 保持默认值。
func NewWith(address, username, password, adminAddress string, retries int, retryDelaySeconds int64) *NodeParams {
	p := New()
	p.address = address
	p.username = username
	p.password = password
	p.adminAddress = adminAddress
	p.retries = retries
	p.retryDelaySeconds = retryDelaySeconds
	return p
}

// Address 返回主网络端点
func (p *NodeParams) Address() string { return p.orDefault().address }

// SetAddress 设置主网络端点
func (p *NodeParams) SetAddress(address string) {
	if p != nil {
		p.address = address
	}
}

// AdminAddress 返回管理端点
func (p *NodeParams) AdminAddress() string { return p.orDefault().adminAddress }

// SetAdminAddress 设置管理端点
func (p *NodeParams) SetAdminAddress(adminAddress string) {
	if p != nil {
		p.adminAddress = adminAddress
	}
}

// Username 返回认证用户名
func (p *NodeParams) Username() string { return p.orDefault().username }

// SetUsername 设置认证用户名
func (p *NodeParams) SetUsername(username string) {
	if p != nil {
		p.username = username
	}
}

// Password 返回认证密码明文
func (p *NodeParams) Password() string { return p.orDefault().password }

// SetPassword 设置认证密码
func (p *NodeParams) SetPassword(password string) {
	if p != nil {
		p.password = password
	}
}

// Retries 返回最大连接尝试次数
func (p *NodeParams) Retries() int { return p.orDefault().retries }

// SetRetries 设置最大连接尝试次数
func (p *NodeParams) SetRetries(retries int) {
	if p != nil {
		p.retries = retries
	}
}

// RetryDelaySeconds 返回两次尝试之间的间隔（秒）
func (p *NodeParams) RetryDelaySeconds() int64 { return p.orDefault().retryDelaySeconds }

// SetRetryDelaySeconds 设置两次尝试之间的间隔（秒）
func (p *NodeParams) SetRetryDelaySeconds(seconds int64) {
	if p != nil {
		p.retryDelaySeconds = seconds
	}
}

// RetryDelay 以 time.Duration 形式返回 RetryDelaySeconds
func (p *NodeParams) RetryDelay() time.Duration {
	return time.Duration(p.orDefault().retryDelaySeconds) * time.Second
}

// Lazy 返回是否在首次使用时才建立连接
func (p *NodeParams) Lazy() bool { return p.orDefault().lazy }

// SetLazy 设置是否在首次使用时才建立连接
func (p *NodeParams) SetLazy(lazy bool) {
	if p != nil {
		p.lazy = lazy
	}
}

// ServiceType 返回消费方应实例化的服务实现标识
func (p *NodeParams) ServiceType() ServiceType { return p.orDefault().serviceType }

// SetServiceType 设置服务实现标识
func (p *NodeParams) SetServiceType(serviceType ServiceType) {
	if p != nil {
		p.serviceType = serviceType
	}
}

// defaults 是 nil 实例的 getter 读取的默认值
var defaults = *New()

func (p *NodeParams) orDefault() *NodeParams {
	if p == nil {
		return &defaults
	}
	return p
}

// Clone 返回一个独立副本，修改副本不影响原值
func (p *NodeParams) Clone() *NodeParams {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Equal 报告两个 NodeParams 的所有字段是否相同
func (p *NodeParams) Equal(other *NodeParams) bool {
	if p == nil || other == nil {
		return p == other
	}
	return *p == *other
}

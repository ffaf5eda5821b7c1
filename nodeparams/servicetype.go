package nodeparams

// ServiceType 标识消费方应使用的节点服务实现。
//
// 它是一个注册表键（见 registry 包），而不是某个具体实现的类型名。
// 取值保持自由字符串，以兼容旧配置中写入的任意标识。
type ServiceType string

// DefaultServiceType 默认节点服务实现的标识
const DefaultServiceType ServiceType = "default"

// String 返回标识的字符串形式
func (s ServiceType) String() string { return string(s) }

// IsZero 报告标识是否为空
func (s ServiceType) IsZero() bool { return s == "" }

package nodeparams

// Properties 是 NodeParams 的可反序列化形式，供 config.Loader 解码。
//
// 未出现在配置中的字段保持 nil，由 Params() 填入静态默认值。
// 两个历史键名都可用来指定服务类型：service_type 与 primary_service_type，
// 同时出现时以 service_type 为准。
type Properties struct {
	Address            *string `mapstructure:"address"`
	AdminAddress       *string `mapstructure:"admin_address"`
	Username           *string `mapstructure:"username"`
	Password           *string `mapstructure:"password"`
	Retries            *int    `mapstructure:"retries"`
	RetryDelaySeconds  *int64  `mapstructure:"retry_delay_seconds"`
	Lazy               *bool   `mapstructure:"lazy"`
	ServiceType        *string `mapstructure:"service_type"`
	PrimaryServiceType *string `mapstructure:"primary_service_type"`
}

// Params 以 New() 的默认值为基础，覆盖 Properties 中出现的字段
func (pr Properties) Params() *NodeParams {
	p := New()
	if pr.Address != nil {
		p.address = *pr.Address
	}
	if pr.AdminAddress != nil {
		p.adminAddress = *pr.AdminAddress
	}
	if pr.Username != nil {
		p.username = *pr.Username
	}
	if pr.Password != nil {
		p.password = *pr.Password
	}
	if pr.Retries != nil {
		p.retries = *pr.Retries
	}
	if pr.RetryDelaySeconds != nil {
		p.retryDelaySeconds = *pr.RetryDelaySeconds
	}
	if pr.Lazy != nil {
		p.lazy = *pr.Lazy
	}
	switch {
	case pr.ServiceType != nil:
		p.serviceType = ServiceType(*pr.ServiceType)
	case pr.PrimaryServiceType != nil:
		p.serviceType = ServiceType(*pr.PrimaryServiceType)
	}
	return p
}

// PropertiesOf 返回 p 的完整 Properties 表示（所有字段非 nil），
// 与 p 不共享内存。p 为 nil 时等价于 PropertiesOf(New())。
func PropertiesOf(p *NodeParams) Properties {
	if p == nil {
		p = New()
	}
	c := p.Clone()
	st := string(c.serviceType)
	return Properties{
		Address:           &c.address,
		AdminAddress:      &c.adminAddress,
		Username:          &c.username,
		Password:          &c.password,
		Retries:           &c.retries,
		RetryDelaySeconds: &c.retryDelaySeconds,
		Lazy:              &c.lazy,
		ServiceType:       &st,
	}
}

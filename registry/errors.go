package registry

import "github.com/ceyewan/nodeconf/xerrors"

// 错误码
const (
	CodeUnknownServiceType   = "UNKNOWN_SERVICE_TYPE"
	CodeDuplicateServiceType = "DUPLICATE_SERVICE_TYPE"
	CodeNilFactory           = "NIL_FACTORY"
)

var (
	// ErrUnknownServiceType 节点引用的服务类型没有注册工厂
	ErrUnknownServiceType = xerrors.WithCode(
		xerrors.Wrap(xerrors.ErrNotFound, "registry: unknown service type"), CodeUnknownServiceType)

	// ErrDuplicateServiceType 同一服务类型重复注册
	ErrDuplicateServiceType = xerrors.WithCode(
		xerrors.Wrap(xerrors.ErrAlreadyExists, "registry: service type already registered"), CodeDuplicateServiceType)

	// ErrNilFactory 注册了空工厂
	ErrNilFactory = xerrors.WithCode(
		xerrors.Wrap(xerrors.ErrInvalidInput, "registry: nil factory"), CodeNilFactory)
)

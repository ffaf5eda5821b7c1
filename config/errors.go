package config

import "github.com/ceyewan/nodeconf/xerrors"

// 错误码
const (
	CodeInvalid  = "CONFIG_INVALID"
	CodeNotFound = "CONFIG_NOT_FOUND"
)

var (
	// ErrValidationFailed 验证失败
	ErrValidationFailed = xerrors.WithCode(
		xerrors.Wrap(xerrors.ErrInvalidInput, "configuration validation failed"), CodeInvalid)

	// ErrConfigNotFound 显式指定的配置文件不存在
	ErrConfigNotFound = xerrors.WithCode(
		xerrors.Wrap(xerrors.ErrNotFound, "configuration file not found"), CodeNotFound)
)

// IsNotFound 检查错误是否为配置文件未找到
func IsNotFound(err error) bool {
	return xerrors.Is(err, ErrConfigNotFound)
}

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput)
}

package rdb

import (
	"github.com/pkg/errors"
)

// 错误类型，调用方通过 errors.Is 判断
var (
	// ErrMetadata 实体描述不合法：缺少表名、主键缺失或重复、连接别名冲突等
	ErrMetadata = errors.New("metadata error")
	// ErrConfiguration 数据源类型未配置或不支持
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation 更新/删除的前置条件不满足
	ErrValidation = errors.New("validation error")
	// ErrNotFound 语句没有影响任何记录
	ErrNotFound = errors.New("record not found")
	// ErrState 对象状态不允许当前操作
	ErrState = errors.New("state error")
	// ErrMapping 数据行无法转换为实体字段
	ErrMapping = errors.New("mapping error")
)

// Metadataf 构造 ErrMetadata
func Metadataf(format string, args ...any) error {
	return errors.Wrapf(ErrMetadata, format, args...)
}

// Configurationf 构造 ErrConfiguration
func Configurationf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

// Validationf 构造 ErrValidation
func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFoundf 构造 ErrNotFound
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Statef 构造 ErrState
func Statef(format string, args ...any) error {
	return errors.Wrapf(ErrState, format, args...)
}

// Mappingf 构造 ErrMapping
func Mappingf(format string, args ...any) error {
	return errors.Wrapf(ErrMapping, format, args...)
}

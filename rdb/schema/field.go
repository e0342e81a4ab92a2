package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/ormx/uid"
)

// Kind 字段类型，决定行数据与字段之间的转换规则
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindInt64
	KindFloat64
	KindBool
	KindTime
	KindGUID
	KindNullString
	KindNullInt64
	KindNullFloat64
	KindNullBool
	KindNullTime
	KindNullGUID
)

var kindNames = map[Kind]string{
	KindString:      "string",
	KindInt:         "int",
	KindInt64:       "int64",
	KindFloat64:     "float64",
	KindBool:        "bool",
	KindTime:        "time",
	KindGUID:        "guid",
	KindNullString:  "*string",
	KindNullInt64:   "*int64",
	KindNullFloat64: "*float64",
	KindNullBool:    "*bool",
	KindNullTime:    "*time",
	KindNullGUID:    "*guid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Nullable 字段是否可以保存 NULL
func (k Kind) Nullable() bool {
	return k >= KindNullString
}

// Join 左连接声明，字段的 Column 即连接列在结果中的别名
type Join struct {
	Table      string
	Alias      string
	JoinKey    string
	ForeignKey string
	Source     string
}

// Field 字段绑定：列名、类型和指向实体字段的访问器
type Field[T any] struct {
	Column string
	Kind   Kind

	primaryKey    bool
	autoIncrement bool
	join          *Join
	intGen        uid.IntGenerator
	strGen        uid.StrGenerator

	pointer func(*T) any
}

// Pointer 返回实体中该字段的指针，类型与 Kind 一一对应
// KindString -> *string, KindNullString -> **string, 以此类推
func (f *Field[T]) Pointer(entity *T) any {
	return f.pointer(entity)
}

func (f *Field[T]) IsPrimaryKey() bool    { return f.primaryKey }
func (f *Field[T]) IsAutoIncrement() bool { return f.autoIncrement }
func (f *Field[T]) IsJoin() bool          { return f.join != nil }
func (f *Field[T]) Join() *Join           { return f.join }

// IntGenerator 主键生成器，未设置时返回 nil
func (f *Field[T]) IntGenerator() uid.IntGenerator { return f.intGen }

// StrGenerator 主键生成器，未设置时返回 nil
func (f *Field[T]) StrGenerator() uid.StrGenerator { return f.strGen }

type fieldOptions struct {
	primaryKey    bool
	autoIncrement bool
	join          *Join
	intGen        uid.IntGenerator
	strGen        uid.StrGenerator
}

// Option 字段选项
type Option func(*fieldOptions)

// PrimaryKey 标记主键字段
func PrimaryKey() Option {
	return func(o *fieldOptions) { o.primaryKey = true }
}

// AutoIncrement 标记自增主键，INSERT 时不写入该列
func AutoIncrement() Option {
	return func(o *fieldOptions) {
		o.primaryKey = true
		o.autoIncrement = true
	}
}

// LeftJoin 声明连接列：LEFT JOIN table AS alias ON alias.joinKey = base.foreignKey，
// 选取 alias.source 并以字段列名作为别名
func LeftJoin(table, alias, joinKey, foreignKey, source string) Option {
	return func(o *fieldOptions) {
		o.join = &Join{Table: table, Alias: alias, JoinKey: joinKey, ForeignKey: foreignKey, Source: source}
	}
}

// GenerateInt 保存时主键为零值则由生成器填充
func GenerateInt(g uid.IntGenerator) Option {
	return func(o *fieldOptions) { o.intGen = g }
}

// GenerateString 保存时主键为空则由生成器填充
func GenerateString(g uid.StrGenerator) Option {
	return func(o *fieldOptions) { o.strGen = g }
}

func newField[T any, V any](column string, kind Kind, ptr func(*T) V, opts []Option) *Field[T] {
	var o fieldOptions
	for _, opt := range opts {
		opt(&o)
	}
	f := &Field[T]{
		Column:        column,
		Kind:          kind,
		primaryKey:    o.primaryKey,
		autoIncrement: o.autoIncrement,
		join:          o.join,
		intGen:        o.intGen,
		strGen:        o.strGen,
	}
	if ptr != nil {
		f.pointer = func(e *T) any { return ptr(e) }
	}
	return f
}

func String[T any](column string, ptr func(*T) *string, opts ...Option) *Field[T] {
	return newField(column, KindString, ptr, opts)
}

func Int[T any](column string, ptr func(*T) *int, opts ...Option) *Field[T] {
	return newField(column, KindInt, ptr, opts)
}

func Int64[T any](column string, ptr func(*T) *int64, opts ...Option) *Field[T] {
	return newField(column, KindInt64, ptr, opts)
}

func Float64[T any](column string, ptr func(*T) *float64, opts ...Option) *Field[T] {
	return newField(column, KindFloat64, ptr, opts)
}

func Bool[T any](column string, ptr func(*T) *bool, opts ...Option) *Field[T] {
	return newField(column, KindBool, ptr, opts)
}

func Time[T any](column string, ptr func(*T) *time.Time, opts ...Option) *Field[T] {
	return newField(column, KindTime, ptr, opts)
}

func GUID[T any](column string, ptr func(*T) *uuid.UUID, opts ...Option) *Field[T] {
	return newField(column, KindGUID, ptr, opts)
}

func NullString[T any](column string, ptr func(*T) **string, opts ...Option) *Field[T] {
	return newField(column, KindNullString, ptr, opts)
}

func NullInt64[T any](column string, ptr func(*T) **int64, opts ...Option) *Field[T] {
	return newField(column, KindNullInt64, ptr, opts)
}

func NullFloat64[T any](column string, ptr func(*T) **float64, opts ...Option) *Field[T] {
	return newField(column, KindNullFloat64, ptr, opts)
}

func NullBool[T any](column string, ptr func(*T) **bool, opts ...Option) *Field[T] {
	return newField(column, KindNullBool, ptr, opts)
}

func NullTime[T any](column string, ptr func(*T) **time.Time, opts ...Option) *Field[T] {
	return newField(column, KindNullTime, ptr, opts)
}

func NullGUID[T any](column string, ptr func(*T) **uuid.UUID, opts ...Option) *Field[T] {
	return newField(column, KindNullGUID, ptr, opts)
}

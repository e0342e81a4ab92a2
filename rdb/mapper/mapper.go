package mapper

import (
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/ormx/rdb"
	"github.com/hatlonely/ormx/rdb/schema"
	"github.com/spf13/cast"
)

// Row 一行查询结果，列名匹配不区分大小写
type Row interface {
	Lookup(column string) (any, bool)
}

// RowToEntity 将一行数据转换为实体，行中不存在的列跳过
func RowToEntity[T any](meta *schema.Metadata[T], row Row) (T, error) {
	var entity T
	for _, f := range meta.Fields {
		v, ok := row.Lookup(f.Column)
		if !ok {
			continue
		}
		if err := Assign(f, &entity, v); err != nil {
			return entity, err
		}
	}
	return entity, nil
}

// RowsToEntities 按顺序转换多行，任意一行失败则整体失败
func RowsToEntities[T any, R Row](meta *schema.Metadata[T], rows []R) ([]T, error) {
	entities := make([]T, 0, len(rows))
	for i, row := range rows {
		entity, err := RowToEntity(meta, row)
		if err != nil {
			return nil, rdb.Mappingf("row %d: %v", i, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Assign 将单元格的值按字段类型转换后写入实体
func Assign[T any](f *schema.Field[T], entity *T, value any) error {
	if b, ok := value.([]byte); ok && f.Kind != schema.KindGUID && f.Kind != schema.KindNullGUID {
		value = string(b)
	}

	var err error
	switch p := f.Pointer(entity).(type) {
	case *string:
		*p, err = toString(value)
	case *int:
		*p, err = orZero(value, cast.ToIntE)
	case *int64:
		*p, err = orZero(value, cast.ToInt64E)
	case *float64:
		*p, err = orZero(value, cast.ToFloat64E)
	case *bool:
		*p, err = orZero(value, cast.ToBoolE)
	case *time.Time:
		*p = ParseTime(value)
	case *uuid.UUID:
		*p, err = toGUID(value)
	case **string:
		*p, err = orNil(value, toString)
	case **int64:
		*p, err = orNil(value, cast.ToInt64E)
	case **float64:
		*p, err = orNil(value, cast.ToFloat64E)
	case **bool:
		*p, err = orNil(value, cast.ToBoolE)
	case **time.Time:
		*p, err = orNil(value, func(v any) (time.Time, error) { return ParseTime(v), nil })
	case **uuid.UUID:
		*p, err = orNil(value, toGUID)
	default:
		return rdb.Mappingf("column %s: unsupported field type %T", f.Column, p)
	}
	if err != nil {
		return rdb.Mappingf("column %s: cannot convert %T(%v) to %s: %v", f.Column, value, value, f.Kind, err)
	}
	return nil
}

// Value 读取实体字段的出站值，可空字段为 nil 时返回 nil
func Value[T any](f *schema.Field[T], entity *T) any {
	switch p := f.Pointer(entity).(type) {
	case *string:
		return *p
	case *int:
		return *p
	case *int64:
		return *p
	case *float64:
		return *p
	case *bool:
		return *p
	case *time.Time:
		return *p
	case *uuid.UUID:
		return *p
	case **string:
		return deref(*p)
	case **int64:
		return deref(*p)
	case **float64:
		return deref(*p)
	case **bool:
		return deref(*p)
	case **time.Time:
		return deref(*p)
	case **uuid.UUID:
		return deref(*p)
	}
	return nil
}

// IsEmpty 字段值是否为空：空字符串、零值数字、uuid.Nil、零时间或 nil
func IsEmpty[T any](f *schema.Field[T], entity *T) bool {
	switch v := Value(f, entity).(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case uuid.UUID:
		return v == uuid.Nil
	case time.Time:
		return v.IsZero()
	}
	return false
}

func deref[V any](p *V) any {
	if p == nil {
		return nil
	}
	return *p
}

func orZero[V any](value any, conv func(any) (V, error)) (V, error) {
	if value == nil {
		var zero V
		return zero, nil
	}
	return conv(value)
}

func orNil[V any](value any, conv func(any) (V, error)) (*V, error) {
	if value == nil {
		return nil, nil
	}
	v, err := conv(value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func toString(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	if u, ok := value.(uuid.UUID); ok {
		return u.String(), nil
	}
	if t, ok := value.(time.Time); ok {
		return t.Format(time.RFC3339Nano), nil
	}
	return cast.ToStringE(value)
}

func toGUID(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case nil:
		return uuid.Nil, nil
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		if v == "" {
			return uuid.Nil, nil
		}
		return uuid.Parse(v)
	}
	return uuid.Nil, rdb.Mappingf("unsupported guid value %T", value)
}

var timeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTime 宽松解析时间，无法解析或为空时返回零值
func ParseTime(value any) time.Time {
	switch v := value.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v
	case *time.Time:
		if v == nil {
			return time.Time{}
		}
		return *v
	case []byte:
		return ParseTime(string(v))
	case string:
		for _, layout := range timeFormats {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	if t, err := cast.ToTimeE(value); err == nil {
		return t
	}
	return time.Time{}
}

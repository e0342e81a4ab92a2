package record

import (
	"context"
	"iter"

	"github.com/hatlonely/ormx/rdb/access"
	"github.com/hatlonely/ormx/rdb/condition"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/hatlonely/ormx/rdb/mapper"
	"github.com/hatlonely/ormx/rdb/schema"
	"github.com/hatlonely/ormx/rdb/sqlgen"
)

// Collection 按查询顺序排列的实体集合，加载后大小固定
type Collection[T any] struct {
	items []T
	table *access.Table
}

// LoadAll 加载全部行
func LoadAll[T schema.Describer[T]](ctx context.Context, da access.DataAccess) (*Collection[T], error) {
	return LoadCollection[T](ctx, da, nil)
}

// LoadBy 按单个条件加载
func LoadBy[T schema.Describer[T]](ctx context.Context, da access.DataAccess, clause condition.Clause) (*Collection[T], error) {
	return LoadCollection[T](ctx, da, condition.New(clause))
}

// LoadCollection 按条件加载，b 为 nil 时加载全部
func LoadCollection[T schema.Describer[T]](ctx context.Context, da access.DataAccess, b *condition.Builder) (*Collection[T], error) {
	meta, err := schema.Resolve[T]()
	if err != nil {
		return nil, err
	}
	st := sqlgen.SelectWhere(meta, da.Dialect(), b)
	return loadCollection(ctx, da, meta, st.Text, st.Params)
}

// LoadQuery 执行自定义查询，结果列按列名映射到实体
func LoadQuery[T schema.Describer[T]](ctx context.Context, da access.DataAccess, text string, params ...dialect.Parameter) (*Collection[T], error) {
	meta, err := schema.Resolve[T]()
	if err != nil {
		return nil, err
	}
	return loadCollection(ctx, da, meta, text, params)
}

func loadCollection[T any](ctx context.Context, da access.DataAccess, meta *schema.Metadata[T], text string, params []dialect.Parameter) (*Collection[T], error) {
	table, err := da.ExecuteTable(ctx, access.CommandText, text, params...)
	if err != nil {
		return nil, err
	}
	items, err := mapper.RowsToEntities(meta, table.Rows)
	if err != nil {
		return nil, err
	}
	return &Collection[T]{items: items, table: table}, nil
}

func (c *Collection[T]) Len() int { return len(c.items) }

// At 返回第 i 个实体，越界时 panic
func (c *Collection[T]) At(i int) T { return c.items[i] }

// All 每次调用都从第一个元素开始迭代
func (c *Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range c.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Slice 返回实体的副本
func (c *Collection[T]) Slice() []T {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Collection[T]) Table() *access.Table { return c.table }

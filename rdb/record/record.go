package record

import (
	"context"

	"github.com/hatlonely/ormx/rdb"
	"github.com/hatlonely/ormx/rdb/access"
	"github.com/hatlonely/ormx/rdb/condition"
	"github.com/hatlonely/ormx/rdb/mapper"
	"github.com/hatlonely/ormx/rdb/schema"
	"github.com/hatlonely/ormx/rdb/sqlgen"
	"github.com/pkg/errors"
)

// Record 活动记录：持有一个实体并负责加载、插入、更新和删除其对应的行
//
//	r, _ := record.New(da, Customer{Name: "A", Email: "a@x.com"})
//	_ = r.Save(ctx)
//	r, _ = record.Load[Customer](ctx, da, r.Entity().Id)
type Record[T schema.Describer[T]] struct {
	entity T
	meta   *schema.Metadata[T]
	da     access.DataAccess
	table  *access.Table

	exists   bool
	inserted bool
	deleted  bool
	disposed bool
}

// New 以实体创建尚未插入的记录
func New[T schema.Describer[T]](da access.DataAccess, entity T) (*Record[T], error) {
	meta, err := schema.Resolve[T]()
	if err != nil {
		return nil, err
	}
	return &Record[T]{entity: entity, meta: meta, da: da}, nil
}

// Load 按主键加载，没有匹配的行时返回 Exists() 为 false 的记录
func Load[T schema.Describer[T]](ctx context.Context, da access.DataAccess, id any) (*Record[T], error) {
	meta, err := schema.Resolve[T]()
	if err != nil {
		return nil, err
	}
	return load(ctx, da, meta, sqlgen.SelectByID(meta, da.Dialect(), id))
}

// LoadWhere 按条件加载第一行
func LoadWhere[T schema.Describer[T]](ctx context.Context, da access.DataAccess, b *condition.Builder) (*Record[T], error) {
	meta, err := schema.Resolve[T]()
	if err != nil {
		return nil, err
	}
	return load(ctx, da, meta, sqlgen.SelectWhere(meta, da.Dialect(), b))
}

func load[T schema.Describer[T]](ctx context.Context, da access.DataAccess, meta *schema.Metadata[T], st sqlgen.Statement) (*Record[T], error) {
	table, err := da.ExecuteTable(ctx, access.CommandText, st.Text, st.Params...)
	if err != nil {
		return nil, err
	}

	r := &Record[T]{meta: meta, da: da, table: table, inserted: true}
	if table.Len() > 0 {
		if r.entity, err = mapper.RowToEntity(meta, table.Rows[0]); err != nil {
			return nil, err
		}
		r.exists = true
	}
	return r, nil
}

// Entity 返回实体指针，修改后通过 Save 或 Update 写回
func (r *Record[T]) Entity() *T { return &r.entity }

func (r *Record[T]) Metadata() *schema.Metadata[T] { return r.meta }

// Table 最近一次加载得到的原始结果，未加载时为 nil
func (r *Record[T]) Table() *access.Table { return r.table }

// Exists 最近一次加载是否匹配到行
func (r *Record[T]) Exists() bool   { return r.exists }
func (r *Record[T]) Inserted() bool { return r.inserted }
func (r *Record[T]) Deleted() bool  { return r.deleted }
func (r *Record[T]) Disposed() bool { return r.disposed }

// Save 总是执行 INSERT，不检查行是否已存在
// 主键配置了生成器且为空时先生成主键；自增主键在同一连接上读回
func (r *Record[T]) Save(ctx context.Context) (err error) {
	if r.disposed {
		return rdb.Validationf("%s record is disposed", r.meta.Table)
	}
	if err := generate(ctx, r.meta, &r.entity); err != nil {
		return err
	}

	d := r.da.Dialect()
	st := sqlgen.Insert(r.meta, d, &r.entity)
	identity := r.meta.AutoIncrement && d.IdentityQuery() != ""

	if identity && !r.da.IsOpen() {
		if err := r.da.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if cerr := r.da.Close(); err == nil {
				err = cerr
			}
		}()
	}

	if _, err := r.da.Execute(ctx, access.CommandText, st.Text, st.Params...); err != nil {
		return err
	}
	if identity {
		id, err := r.da.ExecuteScalar(ctx, access.CommandText, d.IdentityQuery())
		if err != nil {
			return err
		}
		if err := mapper.Assign(r.meta.PrimaryKey, &r.entity, id); err != nil {
			return errors.WithMessage(err, "read back identity failed")
		}
	}

	r.inserted = true
	return nil
}

// Update 按主键更新全部普通列，不检查影响行数
func (r *Record[T]) Update(ctx context.Context) error {
	pk := r.meta.PrimaryKey
	if pk == nil {
		return rdb.Validationf("%s has no primary key", r.meta.Table)
	}
	if mapper.IsEmpty(pk, &r.entity) {
		return rdb.Validationf("%s.%s is empty", r.meta.Table, pk.Column)
	}
	if len(r.meta.Columns) == 0 {
		return rdb.Validationf("%s has no columns to update", r.meta.Table)
	}

	st := sqlgen.Update(r.meta, r.da.Dialect(), &r.entity)
	_, err := r.da.Execute(ctx, access.CommandText, st.Text, st.Params...)
	return err
}

// Delete 按主键删除，成功后清空实体并释放记录
func (r *Record[T]) Delete(ctx context.Context) error {
	if r.deleted {
		return rdb.Validationf("%s record is already deleted", r.meta.Table)
	}
	if !r.inserted {
		return rdb.Validationf("%s record is not inserted", r.meta.Table)
	}
	pk := r.meta.PrimaryKey
	if pk == nil {
		return rdb.Validationf("%s has no primary key", r.meta.Table)
	}
	if mapper.IsEmpty(pk, &r.entity) {
		return rdb.Validationf("%s.%s is empty", r.meta.Table, pk.Column)
	}

	st := sqlgen.Delete(r.meta, r.da.Dialect(), mapper.Value(pk, &r.entity))
	n, err := r.da.Execute(ctx, access.CommandText, st.Text, st.Params...)
	if err != nil {
		return err
	}
	if n == 0 {
		return rdb.NotFoundf("%s %s=%v not found", r.meta.Table, pk.Column, mapper.Value(pk, &r.entity))
	}

	r.deleted = true
	return r.Dispose()
}

// Dispose 清空实体与加载结果，只能调用一次
func (r *Record[T]) Dispose() error {
	if r.disposed {
		return rdb.Statef("%s record is already disposed", r.meta.Table)
	}
	var zero T
	r.entity = zero
	r.table = nil
	r.exists = false
	r.disposed = true
	return nil
}

// Insert 插入一个实体并返回影响行数，不读回自增主键
func Insert[T schema.Describer[T]](ctx context.Context, da access.DataAccess, entity *T) (int64, error) {
	meta, err := schema.Resolve[T]()
	if err != nil {
		return 0, err
	}
	if err := generate(ctx, meta, entity); err != nil {
		return 0, err
	}
	st := sqlgen.Insert(meta, da.Dialect(), entity)
	return da.Execute(ctx, access.CommandText, st.Text, st.Params...)
}

func generate[T any](ctx context.Context, meta *schema.Metadata[T], entity *T) error {
	pk := meta.PrimaryKey
	if !mapper.IsEmpty(pk, entity) {
		return nil
	}
	if g := pk.IntGenerator(); g != nil {
		id, err := g.Generate(ctx)
		if err != nil {
			return errors.WithMessagef(err, "generate %s.%s failed", meta.Table, pk.Column)
		}
		return mapper.Assign(pk, entity, id)
	}
	if g := pk.StrGenerator(); g != nil {
		return mapper.Assign(pk, entity, g.Generate())
	}
	return nil
}

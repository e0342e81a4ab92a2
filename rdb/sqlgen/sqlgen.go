package sqlgen

import (
	"strings"

	"github.com/hatlonely/ormx/rdb/condition"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/hatlonely/ormx/rdb/mapper"
	"github.com/hatlonely/ormx/rdb/schema"
)

// Statement 待执行的语句与参数，占位符为方言的命名形式
type Statement struct {
	Text   string
	Params []dialect.Parameter
}

// Select 生成带 LEFT JOIN 展开的查询，where 为以 " AND " 开头的片段
func Select[T any](meta *schema.Metadata[T], d dialect.Dialect, where string, params ...dialect.Parameter) Statement {
	var sb strings.Builder

	base := ""
	if meta.Alias != "" || len(meta.Joins) > 0 {
		base = d.Quote(meta.BaseRef()) + "."
	}

	columns := make([]string, 0, 1+len(meta.Columns))
	columns = append(columns, base+d.Quote(meta.PrimaryKey.Column))
	for _, f := range meta.Columns {
		columns = append(columns, base+d.Quote(f.Column))
	}
	for _, j := range meta.Joins {
		for _, c := range j.Columns {
			columns = append(columns, d.Quote(j.Alias)+"."+d.Quote(c.Source)+" AS "+d.Quote(c.Alias))
		}
	}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(d.Quote(meta.Table))
	if meta.Alias != "" {
		sb.WriteString(" AS ")
		sb.WriteString(d.Quote(meta.Alias))
	}
	for _, j := range meta.Joins {
		sb.WriteString(" LEFT JOIN ")
		sb.WriteString(d.Quote(j.Table))
		sb.WriteString(" AS ")
		sb.WriteString(d.Quote(j.Alias))
		sb.WriteString(" ON ")
		sb.WriteString(d.Quote(j.Alias) + "." + d.Quote(j.JoinKey))
		sb.WriteString(" = ")
		sb.WriteString(d.Quote(meta.BaseRef()) + "." + d.Quote(j.ForeignKey))
	}
	sb.WriteString(" WHERE 1=1")
	sb.WriteString(where)

	return Statement{Text: sb.String(), Params: params}
}

// SelectByID 按主键查询
func SelectByID[T any](meta *schema.Metadata[T], d dialect.Dialect, id any) Statement {
	pk := meta.PrimaryKey.Column
	column := d.Quote(pk)
	if meta.Alias != "" || len(meta.Joins) > 0 {
		column = d.Quote(meta.BaseRef()) + "." + column
	}
	return Select(meta, d, " AND "+column+" = "+d.Placeholder(pk), d.Parameter(pk, id))
}

// SelectWhere 按条件查询，b 为 nil 时查询全部
// 有别名或连接时条件列限定到基表，避免与连接表同名列冲突
func SelectWhere[T any](meta *schema.Metadata[T], d dialect.Dialect, b *condition.Builder) Statement {
	ref := ""
	if meta.Alias != "" || len(meta.Joins) > 0 {
		ref = meta.BaseRef()
	}
	where, params := b.RenderQualified(d, ref)
	return Select(meta, d, where, params...)
}

// Insert 主键非自增时在首位，其后为普通列
//
//	INSERT INTO "CUSTOMER" ("NAME","EMAIL") VALUES (@NAME,@EMAIL)
func Insert[T any](meta *schema.Metadata[T], d dialect.Dialect, entity *T) Statement {
	fields := make([]*schema.Field[T], 0, 1+len(meta.Columns))
	if !meta.AutoIncrement {
		fields = append(fields, meta.PrimaryKey)
	}
	fields = append(fields, meta.Columns...)

	columns := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	params := make([]dialect.Parameter, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, d.Quote(f.Column))
		placeholders = append(placeholders, d.Placeholder(f.Column))
		params = append(params, d.Parameter(f.Column, mapper.Value(f, entity)))
	}

	return Statement{
		Text:   "INSERT INTO " + d.Quote(meta.Table) + " (" + strings.Join(columns, ",") + ") VALUES (" + strings.Join(placeholders, ",") + ")",
		Params: params,
	}
}

// Update 更新全部普通列，按主键定位
func Update[T any](meta *schema.Metadata[T], d dialect.Dialect, entity *T) Statement {
	sets := make([]string, 0, len(meta.Columns))
	params := make([]dialect.Parameter, 0, len(meta.Columns)+1)
	for _, f := range meta.Columns {
		sets = append(sets, d.Quote(f.Column)+" = "+d.Placeholder(f.Column))
		params = append(params, d.Parameter(f.Column, mapper.Value(f, entity)))
	}

	pk := meta.PrimaryKey
	params = append(params, d.Parameter(pk.Column, mapper.Value(pk, entity)))

	return Statement{
		Text:   "UPDATE " + d.Quote(meta.Table) + " SET " + strings.Join(sets, ", ") + " WHERE " + d.Quote(pk.Column) + " = " + d.Placeholder(pk.Column),
		Params: params,
	}
}

// Delete 按主键删除
func Delete[T any](meta *schema.Metadata[T], d dialect.Dialect, id any) Statement {
	pk := meta.PrimaryKey.Column
	return Statement{
		Text:   "DELETE FROM " + d.Quote(meta.Table) + " WHERE " + d.Quote(pk) + " = " + d.Placeholder(pk),
		Params: []dialect.Parameter{d.Parameter(pk, id)},
	}
}

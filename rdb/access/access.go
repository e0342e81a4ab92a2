package access

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/pkg/errors"
)

// CommandType 命令类型
type CommandType int

const (
	// CommandText 普通 SQL 语句
	CommandText CommandType = iota
	// CommandStoredProcedure 存储过程，text 为过程名
	CommandStoredProcedure
)

func (t CommandType) String() string {
	if t == CommandStoredProcedure {
		return "procedure"
	}
	return "text"
}

// DataAccess 后端无关的数据访问接口
//
// 未调用 Open 时，每次执行都会临时获取连接并在返回前释放；
// Begin 之后的执行自动加入事务，Commit 或 Rollback 结束事务并关闭连接。
// 同一实例不支持并发使用。
type DataAccess interface {
	Dialect() dialect.Dialect

	// Open 固定一个连接，已打开时不做任何事
	Open(ctx context.Context) error
	// Close 释放连接，未提交的事务会被回滚，已关闭时不做任何事
	Close() error
	IsOpen() bool

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool

	// Execute 返回影响行数
	Execute(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (int64, error)
	// ExecuteScalar 返回第一行第一列，没有数据时返回 nil
	ExecuteScalar(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (any, error)
	ExecuteTable(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (*Table, error)
	// ExecuteSet 返回全部结果集
	ExecuteSet(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) ([]*Table, error)
}

// Table 表格形式的查询结果
type Table struct {
	Columns []string
	Rows    []Row
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Row 一行数据，列名查找不区分大小写
type Row struct {
	index  map[string]int
	Values []any
}

func (r Row) Lookup(column string) (any, bool) {
	i, ok := r.index[strings.ToUpper(column)]
	if !ok {
		return nil, false
	}
	return r.Values[i], true
}

func (r Row) Get(column string) any {
	v, _ := r.Lookup(column)
	return v
}

func (r Row) Has(column string) bool {
	_, ok := r.index[strings.ToUpper(column)]
	return ok
}

// NewTable 以列名和行数据构造结果，主要用于测试与自定义后端
func NewTable(columns []string, rows ...[]any) *Table {
	t := &Table{Columns: columns}
	index := columnIndex(columns)
	for _, values := range rows {
		t.Rows = append(t.Rows, Row{index: index, Values: values})
	}
	return t
}

// 重复列名保留第一次出现的位置
func columnIndex(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		key := strings.ToUpper(c)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}
	return index
}

func scanTable(rows *sql.Rows) (*Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "rows.Columns failed")
	}

	t := &Table{Columns: columns, Rows: []Row{}}
	index := columnIndex(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "rows.Scan failed")
		}
		t.Rows = append(t.Rows, Row{index: index, Values: values})
	}
	return t, errors.Wrap(rows.Err(), "rows.Err")
}

func scanSet(rows *sql.Rows) ([]*Table, error) {
	var tables []*Table
	for {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
		if !rows.NextResultSet() {
			break
		}
	}
	return tables, errors.Wrap(rows.Err(), "rows.Err")
}

func scalar(t *Table) any {
	if t.Len() == 0 || len(t.Rows[0].Values) == 0 {
		return nil
	}
	return t.Rows[0].Values[0]
}

// command 将命令转换为驱动可执行的语句与参数
func command(d dialect.Dialect, typ CommandType, text string, params []dialect.Parameter) (string, []any, error) {
	if typ == CommandStoredProcedure {
		call, err := d.ProcedureCall(text, params)
		if err != nil {
			return "", nil, err
		}
		text = call
	}
	query, args, err := d.Bind(text, params)
	if err != nil {
		return "", nil, errors.WithMessagef(err, "bind %q failed", text)
	}
	return query, args, nil
}

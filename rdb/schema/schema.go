package schema

import (
	"reflect"
	"strings"
	"sync"

	"github.com/hatlonely/ormx/rdb"
)

// Definition 实体的静态描述：表名、可选别名和字段绑定表
type Definition[T any] struct {
	Table  string
	Alias  string
	Fields []*Field[T]
}

// Define 创建实体描述
func Define[T any](table string, fields ...*Field[T]) *Definition[T] {
	return &Definition[T]{Table: table, Fields: fields}
}

// As 设置表别名
func (d *Definition[T]) As(alias string) *Definition[T] {
	d.Alias = alias
	return d
}

// Describer 实体类型通过值接收者实现 Describe 返回自身描述
//
//	func (Customer) Describe() *schema.Definition[Customer] {
//		return schema.Define("Customer",
//			schema.Int64("Id", func(c *Customer) *int64 { return &c.Id }, schema.AutoIncrement()),
//			schema.String("Name", func(c *Customer) *string { return &c.Name }),
//		)
//	}
type Describer[T any] interface {
	Describe() *Definition[T]
}

// JoinColumn 连接表中被选取的列及其别名
type JoinColumn struct {
	Source string
	Alias  string
}

// JoinSpec 一个连接别名对应的左连接
type JoinSpec struct {
	Table      string
	Alias      string
	JoinKey    string
	ForeignKey string
	Columns    []JoinColumn
}

// Metadata 解析后的表元数据，创建后不再修改
type Metadata[T any] struct {
	Table         string
	Alias         string
	PrimaryKey    *Field[T]
	AutoIncrement bool
	// Columns 普通数据列，不含主键与连接列，按声明顺序
	Columns []*Field[T]
	// Joins 按别名首次出现的顺序
	Joins []*JoinSpec
	// Fields 全部字段，供行映射使用
	Fields []*Field[T]

	joinIndex map[string]*JoinSpec
}

// JoinByAlias 按别名查找连接
func (m *Metadata[T]) JoinByAlias(alias string) (*JoinSpec, bool) {
	j, ok := m.joinIndex[strings.ToUpper(alias)]
	return j, ok
}

// BaseRef 基表在语句中的引用名：有别名用别名，否则用表名
func (m *Metadata[T]) BaseRef() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Table
}

// Build 校验实体描述并生成元数据，相同描述总是得到相等的结果
func Build[T any](def *Definition[T]) (*Metadata[T], error) {
	if def == nil {
		return nil, rdb.Metadataf("definition of %s is nil", typeName[T]())
	}
	if strings.TrimSpace(def.Table) == "" {
		return nil, rdb.Metadataf("%s has no table name", typeName[T]())
	}

	m := &Metadata[T]{
		Table:     def.Table,
		Alias:     def.Alias,
		joinIndex: map[string]*JoinSpec{},
	}

	seen := map[string]bool{}
	for i, f := range def.Fields {
		if f == nil {
			return nil, rdb.Metadataf("%s field #%d is nil", def.Table, i)
		}
		if strings.TrimSpace(f.Column) == "" {
			return nil, rdb.Metadataf("%s field #%d has no column name", def.Table, i)
		}
		if f.pointer == nil {
			return nil, rdb.Metadataf("%s.%s has no accessor", def.Table, f.Column)
		}
		key := strings.ToUpper(f.Column)
		if seen[key] {
			return nil, rdb.Metadataf("%s.%s is declared more than once", def.Table, f.Column)
		}
		seen[key] = true

		if err := checkField(def.Table, f); err != nil {
			return nil, err
		}

		m.Fields = append(m.Fields, f)
		switch {
		case f.primaryKey:
			if m.PrimaryKey != nil {
				return nil, rdb.Metadataf("%s declares more than one primary key: %s, %s", def.Table, m.PrimaryKey.Column, f.Column)
			}
			m.PrimaryKey = f
			m.AutoIncrement = f.autoIncrement
		case f.join != nil:
			if err := m.addJoin(f); err != nil {
				return nil, err
			}
		default:
			m.Columns = append(m.Columns, f)
		}
	}

	if m.PrimaryKey == nil {
		return nil, rdb.Metadataf("%s declares no primary key", def.Table)
	}
	if m.Alias != "" {
		if _, ok := m.joinIndex[strings.ToUpper(m.Alias)]; ok {
			return nil, rdb.Metadataf("%s alias %s is also used by a join", def.Table, m.Alias)
		}
	}

	return m, nil
}

func checkField[T any](table string, f *Field[T]) error {
	if f.primaryKey && f.join != nil {
		return rdb.Metadataf("%s.%s cannot be both primary key and join column", table, f.Column)
	}
	if f.autoIncrement && f.Kind != KindInt && f.Kind != KindInt64 {
		return rdb.Metadataf("%s.%s: auto increment requires an integer column, got %s", table, f.Column, f.Kind)
	}
	if (f.intGen != nil || f.strGen != nil) && !f.primaryKey {
		return rdb.Metadataf("%s.%s: generators are only supported on primary keys", table, f.Column)
	}
	if f.intGen != nil && f.Kind != KindInt && f.Kind != KindInt64 {
		return rdb.Metadataf("%s.%s: int generator requires an integer column, got %s", table, f.Column, f.Kind)
	}
	if f.strGen != nil && f.Kind != KindString && f.Kind != KindGUID {
		return rdb.Metadataf("%s.%s: string generator requires a string or guid column, got %s", table, f.Column, f.Kind)
	}
	if f.autoIncrement && (f.intGen != nil || f.strGen != nil) {
		return rdb.Metadataf("%s.%s: auto increment column cannot use a generator", table, f.Column)
	}
	if j := f.join; j != nil {
		if j.Table == "" || j.Alias == "" || j.JoinKey == "" || j.ForeignKey == "" {
			return rdb.Metadataf("%s.%s: join requires table, alias, join key and foreign key", table, f.Column)
		}
	}
	return nil
}

func (m *Metadata[T]) addJoin(f *Field[T]) error {
	j := f.join
	source := j.Source
	if source == "" {
		source = f.Column
	}

	key := strings.ToUpper(j.Alias)
	spec, ok := m.joinIndex[key]
	if !ok {
		spec = &JoinSpec{
			Table:      j.Table,
			Alias:      j.Alias,
			JoinKey:    j.JoinKey,
			ForeignKey: j.ForeignKey,
		}
		m.joinIndex[key] = spec
		m.Joins = append(m.Joins, spec)
	} else if !strings.EqualFold(spec.Table, j.Table) ||
		!strings.EqualFold(spec.JoinKey, j.JoinKey) ||
		!strings.EqualFold(spec.ForeignKey, j.ForeignKey) {
		return rdb.Metadataf("%s.%s: join alias %s is declared with different targets", m.Table, f.Column, j.Alias)
	}

	spec.Columns = append(spec.Columns, JoinColumn{Source: source, Alias: f.Column})
	return nil
}

var (
	cache   sync.Map // reflect.Type -> *Metadata[T]
	cacheMu sync.Mutex
)

// Resolve 返回实体类型的元数据，首次解析后缓存，之后的读取不加锁
func Resolve[T Describer[T]]() (*Metadata[T], error) {
	key := reflect.TypeFor[T]()
	if v, ok := cache.Load(key); ok {
		return v.(*Metadata[T]), nil
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if v, ok := cache.Load(key); ok {
		return v.(*Metadata[T]), nil
	}

	var zero T
	m, err := Build(zero.Describe())
	if err != nil {
		return nil, err
	}
	cache.Store(key, m)
	return m, nil
}

// MustResolve 同 Resolve，失败时 panic
func MustResolve[T Describer[T]]() *Metadata[T] {
	m, err := Resolve[T]()
	if err != nil {
		panic(err)
	}
	return m
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

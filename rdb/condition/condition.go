package condition

import (
	"fmt"
	"strings"

	"github.com/hatlonely/ormx/rdb/dialect"
)

// Operator 伪操作符，匹配时忽略大小写与首尾空白
const (
	OpEqual     = "="
	OpIsNull    = "is null"
	OpIsNotNull = "is not null"
	OpLike      = "like"
	OpNotLike   = "not like"
)

// Clause 单个过滤条件，Operator 为空时按等值比较
type Clause struct {
	Column   string `json:"column"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// Builder 以 AND 连接的有序条件列表
//
//	b := condition.New().Add("Status", "=", "Active").Add("DeletedAt", "is null", nil)
//	text, params, err := b.Render(dialect.SQLite3)
//	// text:  AND "STATUS" = @STATUS AND "DELETEDAT" IS NULL
type Builder struct {
	clauses []Clause
}

func New(clauses ...Clause) *Builder {
	return (&Builder{}).AddAll(clauses...)
}

func (b *Builder) Add(column string, operator string, value any) *Builder {
	return b.AddClause(Clause{Column: column, Operator: operator, Value: value})
}

func (b *Builder) AddClause(c Clause) *Builder {
	b.clauses = append(b.clauses, c)
	return b
}

func (b *Builder) AddAll(clauses ...Clause) *Builder {
	b.clauses = append(b.clauses, clauses...)
	return b
}

func (b *Builder) Clear() *Builder {
	b.clauses = b.clauses[:0]
	return b
}

func (b *Builder) Len() int {
	return len(b.clauses)
}

// Clauses 条件副本
func (b *Builder) Clauses() []Clause {
	return append([]Clause(nil), b.clauses...)
}

// Text 渲染后的 WHERE 片段，每个条件以 " AND " 开头，空列表为空字符串
func (b *Builder) Text(d dialect.Dialect) string {
	text, _ := b.Render(d)
	return text
}

// Parameters 与 Text 对应的参数，顺序与条件顺序一致
func (b *Builder) Parameters(d dialect.Dialect) []dialect.Parameter {
	_, params := b.Render(d)
	return params
}

// Render 同时返回片段与参数
// 同一列出现多次时，第二次起的占位符依次命名为 COL_2、COL_3 ...，跳过已占用的名称
func (b *Builder) Render(d dialect.Dialect) (string, []dialect.Parameter) {
	return b.RenderQualified(d, "")
}

// RenderQualified 列名前加表引用，如 "O"."ID"，参数名不变
func (b *Builder) RenderQualified(d dialect.Dialect, ref string) (string, []dialect.Parameter) {
	if b == nil || len(b.clauses) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var params []dialect.Parameter
	counts := map[string]int{}
	taken := map[string]bool{}

	for _, c := range b.clauses {
		column := d.Quote(c.Column)
		if ref != "" {
			column = d.Quote(ref) + "." + column
		}
		op := normalize(c.Operator)

		switch op {
		case "null", OpIsNull:
			fmt.Fprintf(&sb, " AND %s IS NULL", column)
			continue
		case "!null", OpIsNotNull:
			fmt.Fprintf(&sb, " AND %s IS NOT NULL", column)
			continue
		case OpLike:
			op = "LIKE"
		case OpNotLike:
			op = "NOT LIKE"
		case "":
			op = OpEqual
		default:
			op = strings.TrimSpace(c.Operator)
		}

		base := strings.ToUpper(c.Column)
		name := base
		for taken[name] {
			counts[base]++
			name = fmt.Sprintf("%s_%d", base, counts[base]+1)
		}
		taken[name] = true

		fmt.Fprintf(&sb, " AND %s %s %s", column, op, d.Placeholder(name))
		params = append(params, d.Parameter(name, c.Value))
	}

	return sb.String(), params
}

func normalize(operator string) string {
	return strings.Join(strings.Fields(strings.ToLower(operator)), " ")
}

package dialect

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/ormx/rdb"
)

// ParamType 参数类型提示，部分后端需要据此调整绑定值
type ParamType int

const (
	TypeAuto ParamType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeGUID
)

// Parameter 查询参数，Value 为 nil 表示 SQL NULL
type Parameter struct {
	Name  string
	Value any
	Type  ParamType
}

// BindStyle 驱动接受的参数形式
type BindStyle int

const (
	// BindNamed 使用 sql.Named 传递命名参数，语句原样发送
	BindNamed BindStyle = iota
	// BindQuestion 将命名占位符改写为 ?，按出现顺序传参
	BindQuestion
	// BindDollar 将命名占位符改写为 $1, $2 ...，同名参数复用序号
	BindDollar
)

// ProcStyle 存储过程调用语法
type ProcStyle int

const (
	ProcNone ProcStyle = iota
	ProcExec
	ProcCall
	ProcBlock
)

// Dialect 数据源方言：参数前缀、标识符引号、参数构造与绑定
type Dialect interface {
	// Name 方言名称，同时也是配置项中的取值
	Name() string
	// Driver database/sql 驱动名
	Driver() string
	// ParamPrefix 命名参数前缀，如 @ : ?
	ParamPrefix() string
	// Quote 大写并加引号
	Quote(ident string) string
	// Placeholder 参数占位符，前缀 + 大写名称
	Placeholder(name string) string
	// Parameter 构造查询参数
	Parameter(name string, value any) Parameter
	// Bind 将语句中的命名占位符转换为驱动接受的形式
	Bind(text string, params []Parameter) (string, []any, error)
	// IdentityQuery 在同一连接上获取最近生成的自增主键，不支持时返回空字符串
	IdentityQuery() string
	// ProcedureCall 构造存储过程调用语句
	ProcedureCall(name string, params []Parameter) (string, error)
}

// Options 方言定义
type Options struct {
	Name          string
	Driver        string
	ParamPrefix   string
	QuoteOpen     string
	QuoteClose    string
	BindStyle     BindStyle
	ProcStyle     ProcStyle
	NativeGUID    bool
	IdentityQuery string
}

type standard struct {
	options Options
}

// New 根据定义创建方言
func New(options Options) (Dialect, error) {
	if options.Name == "" {
		return nil, rdb.Configurationf("dialect name is required")
	}
	if len(options.ParamPrefix) != 1 {
		return nil, rdb.Configurationf("dialect %s: parameter prefix must be a single character, got %q", options.Name, options.ParamPrefix)
	}
	if options.Driver == "" {
		options.Driver = options.Name
	}
	return &standard{options: options}, nil
}

func (d *standard) Name() string        { return d.options.Name }
func (d *standard) Driver() string      { return d.options.Driver }
func (d *standard) ParamPrefix() string { return d.options.ParamPrefix }

func (d *standard) IdentityQuery() string { return d.options.IdentityQuery }

func (d *standard) Quote(ident string) string {
	return d.options.QuoteOpen + strings.ToUpper(ident) + d.options.QuoteClose
}

func (d *standard) Placeholder(name string) string {
	return d.options.ParamPrefix + strings.ToUpper(name)
}

func (d *standard) Parameter(name string, value any) Parameter {
	p := Parameter{Name: strings.ToUpper(name), Value: value}
	switch value.(type) {
	case nil:
	case string:
		p.Type = TypeString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		p.Type = TypeInt
	case float32, float64:
		p.Type = TypeFloat
	case bool:
		p.Type = TypeBool
	case time.Time:
		p.Type = TypeTime
	case uuid.UUID:
		p.Type = TypeGUID
	}
	return p
}

// value 参数的最终绑定值
func (d *standard) value(p Parameter) any {
	if p.Value == nil {
		return nil
	}
	if p.Type == TypeGUID && !d.options.NativeGUID {
		if u, ok := p.Value.(uuid.UUID); ok {
			return u.String()
		}
	}
	return p.Value
}

func (d *standard) Bind(text string, params []Parameter) (string, []any, error) {
	byName := make(map[string]Parameter, len(params))
	for _, p := range params {
		byName[strings.ToUpper(p.Name)] = p
	}

	var sb strings.Builder
	var args []any
	index := map[string]int{}

	err := scan(text, d.options.ParamPrefix[0], d.options.QuoteOpen, d.options.QuoteClose, &sb, func(name string) error {
		key := strings.ToUpper(name)
		p, ok := byName[key]
		if !ok {
			return rdb.Validationf("missing parameter %s%s", d.options.ParamPrefix, name)
		}
		switch d.options.BindStyle {
		case BindQuestion:
			sb.WriteByte('?')
			args = append(args, d.value(p))
		case BindDollar:
			n, seen := index[key]
			if !seen {
				args = append(args, d.value(p))
				n = len(args)
				index[key] = n
			}
			fmt.Fprintf(&sb, "$%d", n)
		default:
			sb.WriteString(d.options.ParamPrefix)
			sb.WriteString(key)
			if _, seen := index[key]; !seen {
				index[key] = len(args)
				args = append(args, sql.Named(key, d.value(p)))
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

func (d *standard) ProcedureCall(name string, params []Parameter) (string, error) {
	placeholders := make([]string, 0, len(params))
	for _, p := range params {
		placeholders = append(placeholders, d.Placeholder(p.Name))
	}

	switch d.options.ProcStyle {
	case ProcExec:
		parts := make([]string, 0, len(params))
		for i, p := range params {
			parts = append(parts, fmt.Sprintf("@%s = %s", strings.ToUpper(p.Name), placeholders[i]))
		}
		if len(parts) == 0 {
			return "EXEC " + name, nil
		}
		return "EXEC " + name + " " + strings.Join(parts, ", "), nil
	case ProcCall:
		return fmt.Sprintf("CALL %s(%s)", name, strings.Join(placeholders, ", ")), nil
	case ProcBlock:
		return fmt.Sprintf("BEGIN %s(%s); END;", name, strings.Join(placeholders, ", ")), nil
	default:
		return "", rdb.Configurationf("dialect %s does not support stored procedures", d.options.Name)
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Dialect{}
)

// Register 注册方言，同名覆盖
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(d.Name())] = d
}

// MustRegister 以定义注册方言，定义不合法时 panic
func MustRegister(options Options) Dialect {
	d, err := New(options)
	if err != nil {
		panic(err)
	}
	Register(d)
	return d
}

// Lookup 按配置名称查找方言
func Lookup(name string) (Dialect, error) {
	if strings.TrimSpace(name) == "" {
		return nil, rdb.Configurationf("dialect is not configured")
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, rdb.Configurationf("unsupported dialect: %s", name)
	}
	return d, nil
}

// Names 已注册的方言名称
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	SQLite3 = MustRegister(Options{
		Name: "sqlite3", ParamPrefix: "@", QuoteOpen: `"`, QuoteClose: `"`,
		BindStyle: BindNamed, IdentityQuery: "SELECT last_insert_rowid()",
	})
	SQLite = MustRegister(Options{
		Name: "sqlite", ParamPrefix: "@", QuoteOpen: `"`, QuoteClose: `"`,
		BindStyle: BindNamed, IdentityQuery: "SELECT last_insert_rowid()",
	})
	MySQL = MustRegister(Options{
		Name: "mysql", ParamPrefix: "?", QuoteOpen: "`", QuoteClose: "`",
		BindStyle: BindQuestion, ProcStyle: ProcCall, IdentityQuery: "SELECT LAST_INSERT_ID()",
	})
	Postgres = MustRegister(Options{
		Name: "postgres", ParamPrefix: "@", QuoteOpen: `"`, QuoteClose: `"`,
		BindStyle: BindDollar, ProcStyle: ProcCall, NativeGUID: true, IdentityQuery: "SELECT lastval()",
	})
	PGX = MustRegister(Options{
		Name: "pgx", ParamPrefix: "@", QuoteOpen: `"`, QuoteClose: `"`,
		BindStyle: BindDollar, ProcStyle: ProcCall, NativeGUID: true, IdentityQuery: "SELECT lastval()",
	})
	SQLServer = MustRegister(Options{
		Name: "sqlserver", ParamPrefix: "@", QuoteOpen: "[", QuoteClose: "]",
		BindStyle: BindNamed, ProcStyle: ProcExec, NativeGUID: true, IdentityQuery: "SELECT @@IDENTITY",
	})
	Oracle = MustRegister(Options{
		Name: "oracle", Driver: "godror", ParamPrefix: ":", QuoteOpen: `"`, QuoteClose: `"`,
		BindStyle: BindNamed, ProcStyle: ProcBlock,
	})
)

package access

import (
	"context"
	"database/sql"

	"github.com/hatlonely/ormx/rdb"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// gorm 统一使用 @NAME 命名参数，由 gorm 改写为驱动占位符
var (
	GormSQLite = dialect.MustRegister(dialect.Options{
		Name: "gorm-sqlite3", Driver: "sqlite3", ParamPrefix: "@", QuoteOpen: `"`, QuoteClose: `"`,
		BindStyle: dialect.BindNamed, IdentityQuery: "SELECT last_insert_rowid()",
	})
	GormMySQL = dialect.MustRegister(dialect.Options{
		Name: "gorm-mysql", Driver: "mysql", ParamPrefix: "@", QuoteOpen: "`", QuoteClose: "`",
		BindStyle: dialect.BindNamed, IdentityQuery: "SELECT LAST_INSERT_ID()",
	})
)

// GormDataAccess 基于 gorm 的数据访问，语句通过 Exec/Raw 执行
type GormDataAccess struct {
	db      *gorm.DB
	dialect dialect.Dialect

	conn    *sql.Conn
	session *gorm.DB
	tx      *gorm.DB
}

func NewGormDataAccess(db *gorm.DB, d dialect.Dialect) *GormDataAccess {
	return &GormDataAccess{db: db, dialect: d}
}

func (a *GormDataAccess) Dialect() dialect.Dialect { return a.dialect }

func (a *GormDataAccess) IsOpen() bool { return a.conn != nil }

func (a *GormDataAccess) InTransaction() bool { return a.tx != nil }

// Open 固定一个连接，之后的语句都在该连接上执行
func (a *GormDataAccess) Open(ctx context.Context) error {
	if a.conn != nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return errors.Wrap(err, "gorm.DB failed")
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "db.Conn failed")
	}

	// 带 Context 的 Session 会复制 Statement，不影响原 db
	session := a.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	session.Statement.ConnPool = conn

	a.conn = conn
	a.session = session
	return nil
}

func (a *GormDataAccess) Close() error {
	if a.conn == nil {
		return nil
	}
	var err error
	if a.tx != nil {
		err = errors.Wrap(a.tx.Rollback().Error, "gorm.Rollback failed")
		a.tx = nil
	}
	if cerr := a.conn.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "conn.Close failed")
	}
	a.conn = nil
	a.session = nil
	return err
}

func (a *GormDataAccess) Begin(ctx context.Context) error {
	if a.tx != nil {
		return rdb.Statef("transaction already in progress")
	}
	if err := a.Open(ctx); err != nil {
		return err
	}
	tx := a.session.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "gorm.Begin failed")
	}
	a.tx = tx
	return nil
}

func (a *GormDataAccess) Commit() error {
	if a.tx == nil {
		return rdb.Statef("commit without an active transaction")
	}
	err := errors.Wrap(a.tx.Commit().Error, "gorm.Commit failed")
	a.tx = nil
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *GormDataAccess) Rollback() error {
	if a.tx == nil {
		return rdb.Statef("rollback without an active transaction")
	}
	err := errors.Wrap(a.tx.Rollback().Error, "gorm.Rollback failed")
	a.tx = nil
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *GormDataAccess) run(ctx context.Context, fn func(db *gorm.DB) error) error {
	if a.tx != nil {
		return fn(a.tx.WithContext(ctx))
	}
	if a.session != nil {
		return fn(a.session.WithContext(ctx))
	}
	if err := a.Open(ctx); err != nil {
		return err
	}
	err := fn(a.session.WithContext(ctx))
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *GormDataAccess) Execute(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (int64, error) {
	query, args, err := command(a.dialect, typ, text, params)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = a.run(ctx, func(db *gorm.DB) error {
		res := db.Exec(query, args...)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "exec %q failed", query)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

func (a *GormDataAccess) ExecuteScalar(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (any, error) {
	t, err := a.ExecuteTable(ctx, typ, text, params...)
	if err != nil {
		return nil, err
	}
	return scalar(t), nil
}

func (a *GormDataAccess) ExecuteTable(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (*Table, error) {
	var t *Table
	err := a.query(ctx, typ, text, params, func(rows *sql.Rows) (err error) {
		t, err = scanTable(rows)
		return err
	})
	return t, err
}

func (a *GormDataAccess) ExecuteSet(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) ([]*Table, error) {
	var ts []*Table
	err := a.query(ctx, typ, text, params, func(rows *sql.Rows) (err error) {
		ts, err = scanSet(rows)
		return err
	})
	return ts, err
}

func (a *GormDataAccess) query(ctx context.Context, typ CommandType, text string, params []dialect.Parameter, fn func(*sql.Rows) error) error {
	query, args, err := command(a.dialect, typ, text, params)
	if err != nil {
		return err
	}
	return a.run(ctx, func(db *gorm.DB) error {
		rows, err := db.Raw(query, args...).Rows()
		if err != nil {
			return errors.Wrapf(err, "query %q failed", query)
		}
		defer rows.Close()
		return fn(rows)
	})
}

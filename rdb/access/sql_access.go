package access

import (
	"context"
	"database/sql"

	"github.com/hatlonely/ormx/rdb"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/pkg/errors"
)

type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLDataAccess 基于 database/sql 的数据访问
type SQLDataAccess struct {
	db      *sql.DB
	dialect dialect.Dialect

	conn *sql.Conn
	tx   *sql.Tx
}

func NewSQLDataAccess(db *sql.DB, d dialect.Dialect) *SQLDataAccess {
	return &SQLDataAccess{db: db, dialect: d}
}

func (a *SQLDataAccess) Dialect() dialect.Dialect { return a.dialect }

func (a *SQLDataAccess) IsOpen() bool { return a.conn != nil }

func (a *SQLDataAccess) InTransaction() bool { return a.tx != nil }

func (a *SQLDataAccess) Open(ctx context.Context) error {
	if a.conn != nil {
		return nil
	}
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "db.Conn failed")
	}
	a.conn = conn
	return nil
}

func (a *SQLDataAccess) Close() error {
	if a.conn == nil {
		return nil
	}
	var err error
	if a.tx != nil {
		err = errors.Wrap(a.tx.Rollback(), "tx.Rollback failed")
		a.tx = nil
	}
	if cerr := a.conn.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "conn.Close failed")
	}
	a.conn = nil
	return err
}

func (a *SQLDataAccess) Begin(ctx context.Context) error {
	if a.tx != nil {
		return rdb.Statef("transaction already in progress")
	}
	if err := a.Open(ctx); err != nil {
		return err
	}
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "conn.BeginTx failed")
	}
	a.tx = tx
	return nil
}

func (a *SQLDataAccess) Commit() error {
	if a.tx == nil {
		return rdb.Statef("commit without an active transaction")
	}
	err := errors.Wrap(a.tx.Commit(), "tx.Commit failed")
	a.tx = nil
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *SQLDataAccess) Rollback() error {
	if a.tx == nil {
		return rdb.Statef("rollback without an active transaction")
	}
	err := errors.Wrap(a.tx.Rollback(), "tx.Rollback failed")
	a.tx = nil
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// run 事务中使用事务，已打开时使用固定连接，否则临时打开并在结束后释放
func (a *SQLDataAccess) run(ctx context.Context, fn func(r sqlRunner) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	if a.conn != nil {
		return fn(a.conn)
	}
	if err := a.Open(ctx); err != nil {
		return err
	}
	err := fn(a.conn)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *SQLDataAccess) Execute(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (int64, error) {
	query, args, err := command(a.dialect, typ, text, params)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = a.run(ctx, func(r sqlRunner) error {
		res, err := r.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.Wrapf(err, "exec %q failed", query)
		}
		affected, err = res.RowsAffected()
		return errors.Wrap(err, "RowsAffected failed")
	})
	return affected, err
}

func (a *SQLDataAccess) ExecuteScalar(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (any, error) {
	t, err := a.ExecuteTable(ctx, typ, text, params...)
	if err != nil {
		return nil, err
	}
	return scalar(t), nil
}

func (a *SQLDataAccess) ExecuteTable(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (*Table, error) {
	var t *Table
	err := a.query(ctx, typ, text, params, func(rows *sql.Rows) (err error) {
		t, err = scanTable(rows)
		return err
	})
	return t, err
}

func (a *SQLDataAccess) ExecuteSet(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) ([]*Table, error) {
	var ts []*Table
	err := a.query(ctx, typ, text, params, func(rows *sql.Rows) (err error) {
		ts, err = scanSet(rows)
		return err
	})
	return ts, err
}

func (a *SQLDataAccess) query(ctx context.Context, typ CommandType, text string, params []dialect.Parameter, fn func(*sql.Rows) error) error {
	query, args, err := command(a.dialect, typ, text, params)
	if err != nil {
		return err
	}
	return a.run(ctx, func(r sqlRunner) error {
		rows, err := r.QueryContext(ctx, query, args...)
		if err != nil {
			return errors.Wrapf(err, "query %q failed", query)
		}
		defer rows.Close()
		return fn(rows)
	})
}

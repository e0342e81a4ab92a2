package access

import (
	"database/sql"
	"fmt"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hatlonely/ormx/cfg"
	"github.com/hatlonely/ormx/cfg/validator"
	"github.com/hatlonely/ormx/rdb"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/hatlonely/ormx/ref"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

func init() {
	ref.MustRegisterT[Factory](NewFactoryWithOptions)
}

const (
	BackendSQL  = "sql"
	BackendGorm = "gorm"
)

type Options struct {
	// Driver database/sql 驱动名：sqlite3, sqlite, mysql, postgres, pgx
	Driver string `cfg:"driver" validate:"required"`
	// Dialect 方言名称，为空时与 Driver 相同
	Dialect string `cfg:"dialect"`
	// Backend sql 或 gorm
	Backend string `cfg:"backend" def:"sql" validate:"oneof=sql gorm"`

	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`

	MaxConns        int           `cfg:"maxConns" def:"10" validate:"gte=0"`
	MaxIdle         int           `cfg:"maxIdle" def:"5" validate:"gte=0"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime"`

	// Observe 为空时不附加观测
	Observe *ObservableOptions `cfg:"observe"`
}

// Factory 进程启动时按配置创建一次，为每个调用方提供新的 DataAccess
type Factory struct {
	db       *sql.DB
	gormDB   *gorm.DB
	dialect  dialect.Dialect
	observer *Observer
	backend  string
}

func NewFactoryWithOptions(options *Options) (*Factory, error) {
	if options == nil {
		return nil, rdb.Configurationf("data access options is nil")
	}
	o := *options
	if err := cfg.SetDefaults(&o); err != nil {
		return nil, rdb.Configurationf("%v", err)
	}
	if err := validator.ValidateStruct(&o); err != nil {
		return nil, rdb.Configurationf("%v", err)
	}

	if !slices.Contains(sql.Drivers(), o.Driver) {
		return nil, rdb.Configurationf("unsupported driver: %s", o.Driver)
	}
	d, err := resolveDialect(&o)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(&o)
	if err != nil {
		return nil, err
	}

	f := &Factory{dialect: d, backend: o.Backend}
	if o.Backend == BackendGorm {
		if f.gormDB, err = openGorm(o.Driver, dsn); err != nil {
			return nil, err
		}
		if f.db, err = f.gormDB.DB(); err != nil {
			return nil, errors.Wrap(err, "gorm.DB failed")
		}
	} else if f.db, err = sql.Open(o.Driver, dsn); err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}

	f.db.SetMaxOpenConns(o.MaxConns)
	f.db.SetMaxIdleConns(o.MaxIdle)
	f.db.SetConnMaxLifetime(o.ConnMaxLifetime)

	if err := f.db.Ping(); err != nil {
		_ = f.db.Close()
		return nil, errors.Wrap(err, "db.Ping failed")
	}

	if o.Observe != nil {
		if f.observer, err = NewObserverWithOptions(o.Observe); err != nil {
			_ = f.db.Close()
			return nil, err
		}
	}

	return f, nil
}

func resolveDialect(o *Options) (dialect.Dialect, error) {
	name := o.Dialect
	if name == "" {
		name = o.Driver
		if o.Backend == BackendGorm {
			name = "gorm-" + o.Driver
		}
	}
	return dialect.Lookup(name)
}

func openGorm(driver string, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite3":
		dialector = gormsqlite.Open(dsn)
	case "mysql":
		dialector = gormmysql.Open(dsn)
	default:
		return nil, rdb.Configurationf("gorm backend does not support driver %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}
	return db, nil
}

// DSN 未配置 dsn 时按驱动拼接连接串
func DSN(o *Options) (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}
	switch o.Driver {
	case "mysql":
		port := o.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
			o.Username, o.Password, o.Host, port, o.Database, o.Charset), nil
	case "postgres", "pgx":
		port := o.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			o.Host, port, o.Username, o.Password, o.Database), nil
	case "sqlite3", "sqlite":
		if o.Database == "" {
			return "", rdb.Configurationf("%s requires database or dsn", o.Driver)
		}
		return o.Database, nil
	default:
		return "", rdb.Configurationf("dsn is required for driver %s", o.Driver)
	}
}

// Create 返回新的 DataAccess，实例不在调用方之间共享
func (f *Factory) Create() DataAccess {
	var da DataAccess
	if f.gormDB != nil {
		da = NewGormDataAccess(f.gormDB, f.dialect)
	} else {
		da = NewSQLDataAccess(f.db, f.dialect)
	}
	if f.observer != nil {
		return f.observer.Wrap(da)
	}
	return da
}

func (f *Factory) Dialect() dialect.Dialect { return f.dialect }

func (f *Factory) Backend() string { return f.backend }

func (f *Factory) DB() *sql.DB { return f.db }

func (f *Factory) Close() error {
	return errors.Wrap(f.db.Close(), "db.Close failed")
}

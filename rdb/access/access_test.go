package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hatlonely/ormx/rdb"
	"github.com/hatlonely/ormx/rdb/dialect"
	. "github.com/smartystreets/goconvey/convey"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func openSQLite(t *testing.T, driver string) *sql.DB {
	db, err := sql.Open(driver, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTable(t *testing.T) {
	Convey("测试 Table", t, func() {
		table := NewTable([]string{"Id", "Name", "name"}, []any{int64(1), "a", "b"}, []any{int64(2), nil, "c"})
		So(table.Len(), ShouldEqual, 2)

		row := table.Rows[0]
		So(row.Get("ID"), ShouldEqual, int64(1))
		So(row.Get("NAME"), ShouldEqual, "a")
		So(row.Has("id"), ShouldBeTrue)
		So(row.Has("email"), ShouldBeFalse)

		v, ok := table.Rows[1].Lookup("name")
		So(ok, ShouldBeTrue)
		So(v, ShouldBeNil)

		_, ok = row.Lookup("email")
		So(ok, ShouldBeFalse)

		var empty *Table
		So(empty.Len(), ShouldEqual, 0)
	})
}

func TestSQLDataAccess(t *testing.T) {
	Convey("测试 SQLDataAccess", t, func() {
		db, mock := newMock(t)
		da := NewSQLDataAccess(db, dialect.MySQL)
		ctx := context.Background()

		params := []dialect.Parameter{
			dialect.MySQL.Parameter("NAME", "A"),
			dialect.MySQL.Parameter("ID", 1),
		}

		Convey("未打开时自动获取并释放连接", func() {
			mock.ExpectExec("UPDATE `T` SET `NAME` = ? WHERE `ID` = ?").
				WithArgs("A", 1).
				WillReturnResult(sqlmock.NewResult(0, 1))

			n, err := da.Execute(ctx, CommandText, "UPDATE `T` SET `NAME` = ?NAME WHERE `ID` = ?ID", params...)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, int64(1))
			So(da.IsOpen(), ShouldBeFalse)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("Open 与 Close 幂等", func() {
			So(da.Open(ctx), ShouldBeNil)
			So(da.Open(ctx), ShouldBeNil)
			So(da.IsOpen(), ShouldBeTrue)
			So(da.Close(), ShouldBeNil)
			So(da.Close(), ShouldBeNil)
			So(da.IsOpen(), ShouldBeFalse)
		})

		Convey("事务提交", func() {
			mock.ExpectBegin()
			mock.ExpectExec("DELETE FROM `T` WHERE `ID` = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			So(da.Begin(ctx), ShouldBeNil)
			So(da.InTransaction(), ShouldBeTrue)
			_, err := da.Execute(ctx, CommandText, "DELETE FROM `T` WHERE `ID` = ?ID", params...)
			So(err, ShouldBeNil)
			So(da.Commit(), ShouldBeNil)
			So(da.InTransaction(), ShouldBeFalse)
			So(da.IsOpen(), ShouldBeFalse)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("事务回滚", func() {
			mock.ExpectBegin()
			mock.ExpectRollback()

			So(da.Begin(ctx), ShouldBeNil)
			So(da.Rollback(), ShouldBeNil)
			So(da.IsOpen(), ShouldBeFalse)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("状态错误", func() {
			So(errors.Is(da.Commit(), rdb.ErrState), ShouldBeTrue)
			So(errors.Is(da.Rollback(), rdb.ErrState), ShouldBeTrue)

			mock.ExpectBegin()
			mock.ExpectRollback()
			So(da.Begin(ctx), ShouldBeNil)
			So(errors.Is(da.Begin(ctx), rdb.ErrState), ShouldBeTrue)
			So(da.Close(), ShouldBeNil)
			So(da.InTransaction(), ShouldBeFalse)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("ExecuteScalar", func() {
			mock.ExpectQuery("SELECT LAST_INSERT_ID()").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
			mock.ExpectQuery("SELECT `ID` FROM `T` WHERE 1=0").WillReturnRows(sqlmock.NewRows([]string{"ID"}))

			v, err := da.ExecuteScalar(ctx, CommandText, dialect.MySQL.IdentityQuery())
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(7))

			v, err = da.ExecuteScalar(ctx, CommandText, "SELECT `ID` FROM `T` WHERE 1=0")
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
		})

		Convey("ExecuteTable", func() {
			mock.ExpectQuery("SELECT `ID`, `NAME` FROM `T` WHERE `NAME` = ?").
				WithArgs("A").
				WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME"}).AddRow(int64(1), "A").AddRow(int64(2), "A"))

			table, err := da.ExecuteTable(ctx, CommandText, "SELECT `ID`, `NAME` FROM `T` WHERE `NAME` = ?NAME", params...)
			So(err, ShouldBeNil)
			So(table.Columns, ShouldResemble, []string{"ID", "NAME"})
			So(table.Len(), ShouldEqual, 2)
			So(table.Rows[1].Get("id"), ShouldEqual, int64(2))
		})

		Convey("存储过程", func() {
			mock.ExpectExec("CALL sp_touch(?, ?)").WithArgs("A", 1).WillReturnResult(sqlmock.NewResult(0, 3))

			n, err := da.Execute(ctx, CommandStoredProcedure, "sp_touch", params...)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, int64(3))
			So(mock.ExpectationsWereMet(), ShouldBeNil)

			_, err = NewSQLDataAccess(db, dialect.SQLite3).Execute(ctx, CommandStoredProcedure, "sp_touch")
			So(errors.Is(err, rdb.ErrConfiguration), ShouldBeTrue)
		})

		Convey("缺少参数", func() {
			_, err := da.Execute(ctx, CommandText, "DELETE FROM `T` WHERE `ID` = ?MISSING", params...)
			So(errors.Is(err, rdb.ErrValidation), ShouldBeTrue)
		})

		Convey("驱动错误", func() {
			mock.ExpectExec("DELETE FROM `T`").WillReturnError(fmt.Errorf("boom"))

			_, err := da.Execute(ctx, CommandText, "DELETE FROM `T`")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "boom")
			So(da.IsOpen(), ShouldBeFalse)
		})
	})
}

func testSQLite(t *testing.T, da DataAccess) {
	ctx := context.Background()
	d := da.Dialect()

	_, err := da.Execute(ctx, CommandText, `CREATE TABLE "T" ("ID" INTEGER PRIMARY KEY AUTOINCREMENT, "NAME" TEXT)`)
	So(err, ShouldBeNil)

	Convey("同一连接上读取自增主键", func() {
		So(da.Open(ctx), ShouldBeNil)
		n, err := da.Execute(ctx, CommandText, `INSERT INTO "T" ("NAME") VALUES (@NAME)`, d.Parameter("NAME", "a"))
		So(err, ShouldBeNil)
		So(n, ShouldEqual, int64(1))
		id, err := da.ExecuteScalar(ctx, CommandText, d.IdentityQuery())
		So(err, ShouldBeNil)
		So(id, ShouldEqual, int64(1))
		So(da.Close(), ShouldBeNil)

		table, err := da.ExecuteTable(ctx, CommandText, `SELECT "ID", "NAME" FROM "T" WHERE "NAME" = @NAME`, d.Parameter("NAME", "a"))
		So(err, ShouldBeNil)
		So(table.Len(), ShouldEqual, 1)
		So(fmt.Sprintf("%s", table.Rows[0].Get("name")), ShouldEqual, "a")

		set, err := da.ExecuteSet(ctx, CommandText, `SELECT "ID" FROM "T"`)
		So(err, ShouldBeNil)
		So(set, ShouldHaveLength, 1)
		So(set[0].Len(), ShouldEqual, 1)
	})

	Convey("回滚后数据不可见", func() {
		So(da.Begin(ctx), ShouldBeNil)
		_, err := da.Execute(ctx, CommandText, `INSERT INTO "T" ("NAME") VALUES (@NAME)`, d.Parameter("NAME", "b"))
		So(err, ShouldBeNil)
		So(da.Rollback(), ShouldBeNil)

		v, err := da.ExecuteScalar(ctx, CommandText, `SELECT COUNT(*) FROM "T"`)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, int64(0))
	})

	Convey("提交后数据可见", func() {
		So(da.Begin(ctx), ShouldBeNil)
		_, err := da.Execute(ctx, CommandText, `INSERT INTO "T" ("NAME") VALUES (@NAME)`, d.Parameter("NAME", nil))
		So(err, ShouldBeNil)
		So(da.Commit(), ShouldBeNil)

		table, err := da.ExecuteTable(ctx, CommandText, `SELECT "NAME" FROM "T"`)
		So(err, ShouldBeNil)
		So(table.Len(), ShouldEqual, 1)
		So(table.Rows[0].Get("NAME"), ShouldBeNil)
	})
}

func TestSQLDataAccessSQLite(t *testing.T) {
	Convey("测试 SQLDataAccess 读写 sqlite3", t, func() {
		testSQLite(t, NewSQLDataAccess(openSQLite(t, "sqlite3"), dialect.SQLite3))
	})

	Convey("测试 SQLDataAccess 读写 sqlite", t, func() {
		testSQLite(t, NewSQLDataAccess(openSQLite(t, "sqlite"), dialect.SQLite))
	})
}

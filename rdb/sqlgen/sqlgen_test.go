package sqlgen

import (
	"testing"

	"github.com/hatlonely/ormx/rdb/condition"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/hatlonely/ormx/rdb/schema"
	. "github.com/smartystreets/goconvey/convey"
)

type Customer struct {
	Id    int64
	Name  string
	Email string
}

func (Customer) Describe() *schema.Definition[Customer] {
	return schema.Define("Customer",
		schema.Int64("Id", func(c *Customer) *int64 { return &c.Id }, schema.AutoIncrement()),
		schema.String("Name", func(c *Customer) *string { return &c.Name }),
		schema.String("Email", func(c *Customer) *string { return &c.Email }),
	)
}

type Account struct {
	Code  string
	Owner string
}

func (Account) Describe() *schema.Definition[Account] {
	return schema.Define("Account",
		schema.String("Code", func(a *Account) *string { return &a.Code }, schema.PrimaryKey()),
		schema.String("Owner", func(a *Account) *string { return &a.Owner }),
	).As("A")
}

type Order struct {
	Id           int64
	CustomerId   int64
	CustomerName string
	CustomerMail string
	ProductName  string
}

func (Order) Describe() *schema.Definition[Order] {
	return schema.Define("Orders",
		schema.Int64("Id", func(o *Order) *int64 { return &o.Id }, schema.AutoIncrement()),
		schema.Int64("CustomerId", func(o *Order) *int64 { return &o.CustomerId }),
		schema.String("CustomerName", func(o *Order) *string { return &o.CustomerName },
			schema.LeftJoin("Customer", "C", "Id", "CustomerId", "Name")),
		schema.String("CustomerMail", func(o *Order) *string { return &o.CustomerMail },
			schema.LeftJoin("Customer", "C", "Id", "CustomerId", "Email")),
		schema.String("ProductName", func(o *Order) *string { return &o.ProductName },
			schema.LeftJoin("Product", "P", "Id", "ProductId", "Name")),
	)
}

func TestInsert(t *testing.T) {
	Convey("测试 Insert 方法", t, func() {
		Convey("自增主键不写入", func() {
			stmt := Insert(schema.MustResolve[Customer](), dialect.SQLite3, &Customer{Name: "A", Email: "a@x.com"})
			So(stmt.Text, ShouldEqual, `INSERT INTO "CUSTOMER" ("NAME","EMAIL") VALUES (@NAME,@EMAIL)`)
			So(stmt.Params, ShouldResemble, []dialect.Parameter{
				{Name: "NAME", Value: "A", Type: dialect.TypeString},
				{Name: "EMAIL", Value: "a@x.com", Type: dialect.TypeString},
			})
		})

		Convey("非自增主键在首位", func() {
			stmt := Insert(schema.MustResolve[Account](), dialect.MySQL, &Account{Code: "x", Owner: "o"})
			So(stmt.Text, ShouldEqual, "INSERT INTO `ACCOUNT` (`CODE`,`OWNER`) VALUES (?CODE,?OWNER)")
			So(stmt.Params[0].Value, ShouldEqual, "x")
		})

		Convey("连接列不写入", func() {
			stmt := Insert(schema.MustResolve[Order](), dialect.SQLite3, &Order{CustomerId: 1, CustomerName: "ignored"})
			So(stmt.Text, ShouldEqual, `INSERT INTO "ORDERS" ("CUSTOMERID") VALUES (@CUSTOMERID)`)
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("测试 Update 方法", t, func() {
		stmt := Update(schema.MustResolve[Customer](), dialect.SQLite3, &Customer{Id: 7, Name: "B", Email: "b@x.com"})
		So(stmt.Text, ShouldEqual, `UPDATE "CUSTOMER" SET "NAME" = @NAME, "EMAIL" = @EMAIL WHERE "ID" = @ID`)
		So(stmt.Params, ShouldHaveLength, 3)
		So(stmt.Params[2], ShouldResemble, dialect.Parameter{Name: "ID", Value: int64(7), Type: dialect.TypeInt})
	})
}

func TestDelete(t *testing.T) {
	Convey("测试 Delete 方法", t, func() {
		stmt := Delete(schema.MustResolve[Customer](), dialect.SQLServer, int64(7))
		So(stmt.Text, ShouldEqual, `DELETE FROM [CUSTOMER] WHERE [ID] = @ID`)
		So(stmt.Params, ShouldResemble, []dialect.Parameter{{Name: "ID", Value: int64(7), Type: dialect.TypeInt}})
	})
}

func TestSelect(t *testing.T) {
	Convey("测试 Select 方法", t, func() {
		Convey("无别名无连接", func() {
			stmt := SelectByID(schema.MustResolve[Customer](), dialect.SQLite3, int64(1))
			So(stmt.Text, ShouldEqual, `SELECT "ID", "NAME", "EMAIL" FROM "CUSTOMER" WHERE 1=1 AND "ID" = @ID`)
			So(stmt.Params, ShouldHaveLength, 1)
		})

		Convey("别名", func() {
			stmt := SelectByID(schema.MustResolve[Account](), dialect.SQLite3, "x")
			So(stmt.Text, ShouldEqual, `SELECT "A"."CODE", "A"."OWNER" FROM "ACCOUNT" AS "A" WHERE 1=1 AND "A"."CODE" = @CODE`)
		})

		Convey("每个连接别名一个 LEFT JOIN", func() {
			stmt := SelectWhere(schema.MustResolve[Order](), dialect.SQLite3, nil)
			So(stmt.Text, ShouldEqual, `SELECT "ORDERS"."ID", "ORDERS"."CUSTOMERID", `+
				`"C"."NAME" AS "CUSTOMERNAME", "C"."EMAIL" AS "CUSTOMERMAIL", "P"."NAME" AS "PRODUCTNAME" `+
				`FROM "ORDERS" `+
				`LEFT JOIN "CUSTOMER" AS "C" ON "C"."ID" = "ORDERS"."CUSTOMERID" `+
				`LEFT JOIN "PRODUCT" AS "P" ON "P"."ID" = "ORDERS"."PRODUCTID" `+
				`WHERE 1=1`)
			So(stmt.Params, ShouldBeEmpty)
		})

		Convey("条件", func() {
			b := condition.New().Add("Name", "=", "A").Add("Email", "is not null", nil)
			stmt := SelectWhere(schema.MustResolve[Customer](), dialect.MySQL, b)
			So(stmt.Text, ShouldEqual, "SELECT `ID`, `NAME`, `EMAIL` FROM `CUSTOMER` WHERE 1=1 AND `NAME` = ?NAME AND `EMAIL` IS NOT NULL")
			So(stmt.Params, ShouldResemble, []dialect.Parameter{{Name: "NAME", Value: "A", Type: dialect.TypeString}})
		})

		Convey("连接查询的条件限定到基表", func() {
			stmt := SelectWhere(schema.MustResolve[Order](), dialect.SQLite3, condition.New().Add("Id", "=", int64(7)))
			So(stmt.Text, ShouldEndWith, `WHERE 1=1 AND "ORDERS"."ID" = @ID`)
			So(stmt.Params, ShouldResemble, []dialect.Parameter{{Name: "ID", Value: int64(7), Type: dialect.TypeInt}})
		})
	})
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hatlonely/ormx/cfg"
	"github.com/hatlonely/ormx/log"
	"github.com/hatlonely/ormx/log/logger"
	"github.com/hatlonely/ormx/rdb/access"
	"github.com/hatlonely/ormx/rdb/condition"
	"github.com/hatlonely/ormx/rdb/record"
	"github.com/hatlonely/ormx/rdb/schema"
	"github.com/hatlonely/ormx/ref"
	"github.com/hatlonely/ormx/uid"
)

type Options struct {
	Logger   *ref.TypeOptions `cfg:"logger"`
	Database access.Options   `cfg:"database"`
}

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

type Order struct {
	Id           int64
	CustomerId   int64
	Amount       float64
	CustomerName string
}

func (Order) Describe() *schema.Definition[Order] {
	return schema.Define("Orders",
		schema.Int64("Id", func(o *Order) *int64 { return &o.Id }, schema.PrimaryKey(),
			schema.GenerateInt(uid.NewSnowflakeGeneratorWithOptions(&uid.SnowflakeOptions{}))),
		schema.Int64("CustomerId", func(o *Order) *int64 { return &o.CustomerId }),
		schema.Float64("Amount", func(o *Order) *float64 { return &o.Amount }),
		schema.String("CustomerName", func(o *Order) *string { return &o.CustomerName },
			schema.LeftJoin("Customer", "C", "Id", "CustomerId", "Name")),
	).As("O")
}

const ddl = `
CREATE TABLE IF NOT EXISTS "CUSTOMER" ("ID" INTEGER PRIMARY KEY AUTOINCREMENT, "NAME" TEXT NOT NULL, "EMAIL" TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS "ORDERS" ("ID" INTEGER PRIMARY KEY, "CUSTOMERID" INTEGER NOT NULL, "AMOUNT" REAL NOT NULL)`

func main() {
	path := flag.String("c", "rdb/demo/ormx.yaml", "config file")
	flag.Parse()

	if err := run(context.Background(), *path); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	var options Options
	if err := cfg.Load(path, &options, cfg.WithEnvPrefix("ORMX")); err != nil {
		return err
	}

	l := log.Default()
	if options.Logger != nil {
		var err error
		if l, err = log.NewLoggerWithOptions(options.Logger); err != nil {
			return err
		}
		log.SetDefault(l)
	}

	factory, err := access.NewFactoryWithOptions(&options.Database)
	if err != nil {
		return err
	}
	defer factory.Close()

	da := factory.Create()
	if _, err := da.Execute(ctx, access.CommandText, ddl); err != nil {
		return err
	}

	customer, err := record.New(da, Customer{Name: "A", Email: "a@x.com"})
	if err != nil {
		return err
	}
	if err := customer.Save(ctx); err != nil {
		return err
	}
	l.Info("customer saved", "id", customer.Entity().Id)

	if err := placeOrders(ctx, da, customer.Entity().Id, l); err != nil {
		return err
	}

	customer.Entity().Email = "a@example.com"
	if err := customer.Update(ctx); err != nil {
		return err
	}

	loaded, err := record.Load[Customer](ctx, da, customer.Entity().Id)
	if err != nil {
		return err
	}
	l.Info("customer loaded", "exists", loaded.Exists(), "customer", *loaded.Entity())

	customers, err := record.LoadCollection[Customer](ctx, da, condition.New().Add("Email", "like", "%@example.com"))
	if err != nil {
		return err
	}
	for i, c := range customers.All() {
		l.Info("customer", "index", i, "name", c.Name, "email", c.Email)
	}

	if err := loaded.Delete(ctx); err != nil {
		return err
	}
	l.Info("customer deleted", "deleted", loaded.Deleted(), "disposed", loaded.Disposed())
	return nil
}

// placeOrders 在一个事务中下两笔订单
func placeOrders(ctx context.Context, da access.DataAccess, customerID int64, l logger.Logger) (err error) {
	if err := da.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = da.Rollback()
		}
	}()

	for _, amount := range []float64{9.5, 20} {
		order, err := record.New(da, Order{CustomerId: customerID, Amount: amount})
		if err != nil {
			return err
		}
		if err := order.Save(ctx); err != nil {
			return err
		}
	}
	if err := da.Commit(); err != nil {
		return err
	}

	orders, err := record.LoadBy[Order](ctx, da, condition.Clause{Column: "CustomerId", Operator: "=", Value: customerID})
	if err != nil {
		return err
	}
	for _, o := range orders.All() {
		l.Info("order", "id", o.Id, "customer", o.CustomerName, "amount", o.Amount)
	}
	return nil
}

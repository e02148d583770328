package main

import (
	"context"
	"testing"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/ddl"
)

func TestSourceScript(t *testing.T) {
	objs := []sourceObject{
		{Kind: "database", Name: "shop", DDL: "CREATE DATABASE `shop` /*!40100 DEFAULT CHARACTER SET latin1 */"},
		{Kind: "table", Name: "items", DDL: "CREATE TABLE `items` (\n  `id` int NOT NULL,\n  PRIMARY KEY (`id`)\n) ENGINE=InnoDB"},
		{Kind: "procedure", Name: "p", DDL: "CREATE DEFINER=`root`@`%` PROCEDURE `p`()\nBEGIN\n  SELECT 1;\n  SELECT 2;\nEND"},
		{Kind: "view", Name: "v", DDL: "CREATE ALGORITHM=UNDEFINED VIEW `v` AS select 1 AS `x`;"},
		{Kind: "trigger", Name: "tr", DDL: ""},
	}

	want := "CREATE DATABASE `shop` /*!40100 DEFAULT CHARACTER SET latin1 */;\n" +
		"CREATE TABLE `items` (\n  `id` int NOT NULL,\n  PRIMARY KEY (`id`)\n) ENGINE=InnoDB;\n" +
		"CREATE ALGORITHM=UNDEFINED VIEW `v` AS select 1 AS `x`;\n" +
		"DELIMITER $$\n" +
		"CREATE DEFINER=`root`@`%` PROCEDURE `p`()\nBEGIN\n  SELECT 1;\n  SELECT 2;\nEND$$\n" +
		"DELIMITER ;\n"
	if got := sourceScript(objs); got != want {
		t.Errorf("sourceScript() =\n%s\nwant\n%s", got, want)
	}

	if got := sourceScript(objs[:2]); got[len(got)-len("ENGINE=InnoDB;\n"):] != "ENGINE=InnoDB;\n" {
		t.Errorf("script without compound objects ends with %q", got)
	}
}

// staticSource serves a fixed script.
type staticSource struct {
	name, schema, sql string
}

func (s staticSource) Name() string                           { return s.name }
func (s staticSource) Schema() string                         { return s.schema }
func (s staticSource) Script(context.Context) (string, error) { return s.sql, nil }

func TestIngest_SourceScript(t *testing.T) {
	objs := []sourceObject{
		{Kind: "table", Name: "orders", DDL: "CREATE TABLE `orders` (`id` int NOT NULL, `item_id` int, PRIMARY KEY (`id`), CONSTRAINT `fk_item` FOREIGN KEY (`item_id`) REFERENCES `items` (`id`))"},
		{Kind: "table", Name: "items", DDL: "CREATE TABLE `items` (`id` int NOT NULL, PRIMARY KEY (`id`))"},
		{Kind: "procedure", Name: "p", DDL: "CREATE PROCEDURE `p`() BEGIN SELECT 1; SELECT 2; END"},
	}

	cat := catalog.New()
	results, err := ingest(context.Background(), ddl.NewContext(false, nil), cat, false,
		staticSource{name: "MySQL shop", schema: "shop", sql: sourceScript(objs)})
	if err != nil {
		t.Fatalf("ingest() error: %v", err)
	}
	if len(results) != 1 || results[0].Errors != 0 {
		t.Fatalf("results = %+v", results)
	}

	shop := cat.FindSchema("shop")
	if shop == nil {
		t.Fatal("schema shop not created")
	}
	orders := shop.FindTable("orders")
	if orders == nil || orders.ForeignKeys.Len() != 1 {
		t.Fatalf("orders = %+v", orders)
	}
	if fk := orders.ForeignKeys.At(0); fk.ReferencedTable != shop.FindTable("items") {
		t.Errorf("fk_item references %v", fk.ReferencedTable)
	}
	if r := shop.FindRoutine("p"); r == nil || r.Type != catalog.RoutineProcedure {
		t.Errorf("routine p = %+v", r)
	}
}

func TestIngest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := ingest(ctx, ddl.NewContext(false, nil), catalog.New(), false, staticSource{name: "x", sql: "CREATE TABLE t (a INT)"})
	if err == nil || len(results) != 0 {
		t.Errorf("ingest() = %v, %v", results, err)
	}
}

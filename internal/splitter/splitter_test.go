package splitter

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
)

func texts(sql string, ranges []Range) []string {
	var out []string
	for _, r := range ranges {
		out = append(out, r.Text(sql))
	}
	return out
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "simple",
			in:   "SELECT 1; SELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "line comment between statements",
			in:   "SELECT 1; -- c\nSELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "delimiter command",
			in:   "DELIMITER $$\nSELECT 1$$\nDELIMITER ;\nSELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "no trailing delimiter",
			in:   "CREATE TABLE a (x INT);\n  CREATE TABLE b (y INT)  ",
			want: []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)  "},
		},
		{
			name: "semicolon inside quotes",
			in:   "INSERT INTO t VALUES ('a;b', \"c;d\", `e;f`); SELECT 1",
			want: []string{"INSERT INTO t VALUES ('a;b', \"c;d\", `e;f`)", "SELECT 1"},
		},
		{
			name: "escaped quote",
			in:   `SELECT 'it\'s;'; SELECT 2`,
			want: []string{`SELECT 'it\'s;'`, "SELECT 2"},
		},
		{
			name: "leading block comment dropped",
			in:   "/* header; */ SELECT 1;",
			want: []string{"SELECT 1"},
		},
		{
			name: "hidden directive kept",
			in:   "/*!40101 SET NAMES utf8 */;",
			want: []string{"/*!40101 SET NAMES utf8 */"},
		},
		{
			name: "hash comment",
			in:   "# setup; nothing\nUSE db;",
			want: []string{"USE db"},
		},
		{
			name: "double dash without space is not a comment",
			in:   "SELECT 1--1; SELECT 2",
			want: []string{"SELECT 1--1", "SELECT 2"},
		},
		{
			name: "delimiter word inside identifier",
			in:   "SELECT mydelimiter FROM t; SELECT 2",
			want: []string{"SELECT mydelimiter FROM t", "SELECT 2"},
		},
		{
			name: "multi char delimiter with body semicolons",
			in:   "DELIMITER //\nCREATE PROCEDURE p() BEGIN SELECT 1; SELECT 2; END//\nDELIMITER ;\n",
			want: []string{"CREATE PROCEDURE p() BEGIN SELECT 1; SELECT 2; END"},
		},
		{
			name: "only comments",
			in:   "-- nothing here\n/* or here */",
			want: nil,
		},
		{
			name: "empty statements skipped",
			in:   ";;  ;SELECT 1;;",
			want: []string{"SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(tt.in, Ranges(tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Ranges(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetermine_CustomDelimiterAndLineBreak(t *testing.T) {
	in := "SELECT 1 GO\r\nSELECT 2 GO\r\n"
	got := texts(in, Determine(context.Background(), in, "GO", "\r\n", nil))
	want := []string{"SELECT 1 ", "SELECT 2 "}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDetermine_Offsets(t *testing.T) {
	in := "  SELECT 1;\nSELECT 22"
	got := Ranges(in)
	want := []Range{{Offset: 2, Length: 8}, {Offset: 12, Length: 9}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ranges = %+v, want %+v", got, want)
	}
}

func TestDetermine_Stop(t *testing.T) {
	var stop atomic.Bool
	stop.Store(true)
	if got := Determine(context.Background(), "SELECT 1; SELECT 2;", ";", "\n", &stop); len(got) != 0 {
		t.Errorf("stopped scan returned %d ranges", len(got))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := Determine(ctx, "SELECT 1; SELECT 2;", ";", "\n", nil); len(got) != 0 {
		t.Errorf("cancelled scan returned %d ranges", len(got))
	}
}

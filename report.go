package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

// catalogCounts tallies the objects of a catalog.
type catalogCounts struct {
	Schemas, Tables, Columns, Indexes, ForeignKeys int
	Views, Routines, Triggers, Events              int
	ServerObjects                                  int
}

func countCatalog(cat *catalog.Catalog) catalogCounts {
	var c catalogCounts
	c.Schemas = cat.Schemata.Len()
	c.ServerObjects = cat.LogFileGroups.Len() + cat.Tablespaces.Len() + cat.Servers.Len()
	for _, s := range cat.Schemata.Items() {
		c.Tables += s.Tables.Len()
		c.Views += s.Views.Len()
		c.Routines += s.Routines.Len()
		c.Events += s.Events.Len()
		for _, t := range s.Tables.Items() {
			c.Columns += t.Columns.Len()
			c.Indexes += t.Indexes.Len()
			c.ForeignKeys += t.ForeignKeys.Len()
			c.Triggers += t.Triggers.Len()
		}
	}
	return c
}

func (c catalogCounts) String() string {
	return fmt.Sprintf("%d schemas, %d tables (%d columns, %d indexes, %d fks), %d views, %d routines, %d triggers, %d events, %d server objects",
		c.Schemas, c.Tables, c.Columns, c.Indexes, c.ForeignKeys, c.Views, c.Routines, c.Triggers, c.Events, c.ServerObjects)
}

// collectCatalogWarnings returns every warning for cat, grouped by check.
func collectCatalogWarnings(cat *catalog.Catalog) []string {
	var warnings []string
	warnings = append(warnings, collectStubTableWarnings(cat)...)
	warnings = append(warnings, collectModelOnlyWarnings(cat)...)
	warnings = append(warnings, collectIndexWarnings(cat)...)
	warnings = append(warnings, collectEnumSetWarnings(cat)...)
	warnings = append(warnings, collectCollationWarnings(cat)...)
	warnings = append(warnings, collectGeneratedColumnWarnings(cat)...)
	return warnings
}

func eachTable(cat *catalog.Catalog, fn func(s *catalog.Schema, t *catalog.Table)) {
	for _, s := range cat.Schemata.Items() {
		for _, t := range s.Tables.Items() {
			fn(s, t)
		}
	}
}

// collectStubTableWarnings lists tables that were only referenced, never
// created.
func collectStubTableWarnings(cat *catalog.Catalog) []string {
	var warnings []string
	eachTable(cat, func(s *catalog.Schema, t *catalog.Table) {
		if t.IsStub {
			warnings = append(warnings, fmt.Sprintf("table %s.%s is referenced but never created", s.Name, t.Name))
		}
	})
	return warnings
}

// collectModelOnlyWarnings lists objects whose definition failed to parse.
func collectModelOnlyWarnings(cat *catalog.Catalog) []string {
	var warnings []string
	add := func(kind, schema, name string) {
		if schema != "" {
			name = schema + "." + name
		}
		warnings = append(warnings, fmt.Sprintf("%s %s has a definition that could not be parsed", kind, name))
	}

	for _, s := range cat.Schemata.Items() {
		for _, t := range s.Tables.Items() {
			if t.ModelOnly {
				add("table", s.Name, t.Name)
			}
			for _, tr := range t.Triggers.Items() {
				if tr.ModelOnly {
					add("trigger", s.Name, tr.Name)
				}
			}
		}
		for _, v := range s.Views.Items() {
			if v.ModelOnly {
				add("view", s.Name, v.Name)
			}
		}
		for _, r := range s.Routines.Items() {
			if r.ModelOnly {
				add("routine", s.Name, r.Name)
			}
		}
		for _, e := range s.Events.Items() {
			if e.ModelOnly {
				add("event", s.Name, e.Name)
			}
		}
	}
	for _, g := range cat.LogFileGroups.Items() {
		if g.ModelOnly {
			add("logfile group", "", g.Name)
		}
	}
	for _, ts := range cat.Tablespaces.Items() {
		if ts.ModelOnly {
			add("tablespace", "", ts.Name)
		}
	}
	for _, srv := range cat.Servers.Items() {
		if srv.ModelOnly {
			add("server", "", srv.Name)
		}
	}
	return warnings
}

// isExpressionPart reports whether an index part is a functional key part.
func isExpressionPart(ic *catalog.IndexColumn) bool {
	return strings.HasPrefix(ic.Name, "(")
}

// collectIndexWarnings reports key parts naming missing columns and foreign
// keys whose referenced side could not be resolved.
func collectIndexWarnings(cat *catalog.Catalog) []string {
	var warnings []string
	eachTable(cat, func(s *catalog.Schema, t *catalog.Table) {
		for _, idx := range t.Indexes.Items() {
			for _, ic := range idx.Columns {
				if ic.Column == nil && !isExpressionPart(ic) {
					warnings = append(warnings,
						fmt.Sprintf("%s.%s (%s): key part %s names no column of the table", s.Name, t.Name, idx.Name, ic.Name))
				}
			}
		}
		for _, fk := range t.ForeignKeys.Items() {
			if fk.ReferencedTable == nil || len(fk.ReferencedColumns) != len(fk.Columns) {
				warnings = append(warnings,
					fmt.Sprintf("%s.%s (%s): foreign key references could not be resolved", s.Name, t.Name, fk.Name))
			}
		}
	})
	return warnings
}

// parseMySQLEnumSetValues unquotes the value list of an ENUM or SET type,
// e.g. "('a', 'b''c')".
func parseMySQLEnumSetValues(list string) ([]string, error) {
	open := strings.IndexByte(list, '(')
	end := strings.LastIndexByte(list, ')')
	if open < 0 || end <= open {
		return nil, errors.Errorf("invalid enum/set value list %q", list)
	}

	inside := list[open+1 : end]
	var values []string
	i := 0
	for i < len(inside) {
		for i < len(inside) && (inside[i] == ' ' || inside[i] == ',') {
			i++
		}
		if i >= len(inside) {
			break
		}
		q := inside[i]
		if q != '\'' && q != '"' {
			return nil, errors.Errorf("invalid enum/set value list %q", list)
		}
		i++

		var b strings.Builder
		for i < len(inside) {
			c := inside[i]
			if c == '\\' {
				if i+1 >= len(inside) {
					return nil, errors.Errorf("invalid escape in %q", list)
				}
				b.WriteByte(inside[i+1])
				i += 2
				continue
			}
			if c == q {
				if i+1 < len(inside) && inside[i+1] == q {
					b.WriteByte(q)
					i += 2
					continue
				}
				i++
				break
			}
			b.WriteByte(c)
			i++
		}
		values = append(values, b.String())
	}
	return values, nil
}

// collectEnumSetWarnings checks ENUM and SET value lists and that literal
// defaults are members of them.
func collectEnumSetWarnings(cat *catalog.Catalog) []string {
	var warnings []string
	eachTable(cat, func(s *catalog.Schema, t *catalog.Table) {
		for _, col := range t.Columns.Items() {
			if col.SimpleType == nil || (col.SimpleType.Name != "ENUM" && col.SimpleType.Name != "SET") {
				continue
			}
			where := fmt.Sprintf("%s.%s.%s", s.Name, t.Name, col.Name)
			values, err := parseMySQLEnumSetValues(col.DatatypeExplicitParams)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", where, err))
				continue
			}
			if len(values) == 0 {
				warnings = append(warnings, fmt.Sprintf("%s: %s without values", where, col.SimpleType.Name))
				continue
			}
			if col.DefaultValueIsNull || col.DefaultValue == "" || !strings.HasPrefix(col.DefaultValue, "'") {
				continue
			}
			dflt, err := parseMySQLEnumSetValues("(" + col.DefaultValue + ")")
			if err != nil || len(dflt) != 1 {
				continue
			}
			members := []string{dflt[0]}
			if col.SimpleType.Name == "SET" {
				members = splitSetValue(dflt[0])
			}
			for _, m := range members {
				if !containsFold(values, m) {
					warnings = append(warnings, fmt.Sprintf("%s: default %q is not one of %s", where, m, col.DatatypeExplicitParams))
				}
			}
		}
	})
	return warnings
}

func splitSetValue(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(strings.TrimRight(x, " "), strings.TrimRight(v, " ")) {
			return true
		}
	}
	return false
}

// collectCollationWarnings summarizes the character sets in use and reports
// columns whose collation belongs to another character set.
func collectCollationWarnings(cat *catalog.Catalog) []string {
	charsets := make(map[string]bool)
	var warnings []string
	eachTable(cat, func(s *catalog.Schema, t *catalog.Table) {
		for _, col := range t.Columns.Items() {
			if col.CharacterSet != "" {
				charsets[strings.ToLower(col.CharacterSet)] = true
			}
			if col.CharacterSet == "" || col.Collation == "" {
				continue
			}
			if cs := catalog.CharsetForCollation(col.Collation); cs != "" && !strings.EqualFold(cs, col.CharacterSet) {
				warnings = append(warnings, fmt.Sprintf("%s.%s.%s: collation %s does not belong to character set %s",
					s.Name, t.Name, col.Name, col.Collation, col.CharacterSet))
			}
		}
	})
	if len(charsets) > 1 {
		names := make([]string, 0, len(charsets))
		for cs := range charsets {
			names = append(names, cs)
		}
		sort.Strings(names)
		warnings = append([]string{"columns use several character sets: " + strings.Join(names, ", ")}, warnings...)
	}
	return warnings
}

// collectGeneratedColumnWarnings lists generated columns; exports keep the
// expression text but nothing evaluates it.
func collectGeneratedColumnWarnings(cat *catalog.Catalog) []string {
	var warnings []string
	eachTable(cat, func(s *catalog.Schema, t *catalog.Table) {
		for _, col := range t.Columns.Items() {
			if !col.Generated {
				continue
			}
			storage := col.GeneratedStorage
			if storage == "" {
				storage = "VIRTUAL"
			}
			warnings = append(warnings, fmt.Sprintf("generated column %s.%s.%s (%s) AS %s",
				s.Name, t.Name, col.Name, storage, col.Expression))
		}
	})
	return warnings
}

package ddl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/lexer"
	"github.com/Limetric/mysqlcat/internal/parser"
	"github.com/Limetric/mysqlcat/internal/splitter"
)

const (
	syntaxErrorSuffix = "_SYNTAX_ERROR"
	wrongSchemaSuffix = "_WRONG_SCHEMA"
)

// recoverName looks for the keywords in order and reads the object name
// following the last one. It is used on statements that did not parse and
// returns "" when no name can be found.
func recoverName(c *parser.Cursor, keywords ...string) string {
	c.Reset(0)
	for _, kw := range keywords {
		if !c.AdvanceTo(kw) {
			return ""
		}
		c.Advance()
	}
	if c.Is("IF") {
		c.Next(3)
	}
	id, ok := tryIdentifier(c)
	if !ok {
		return ""
	}
	return id.Name
}

// failedName returns the name a target gets after a failed parse.
func failedName(recovered, current string) string {
	if recovered == "" {
		return current
	}
	return recovered + syntaxErrorSuffix
}

// ParseTable parses a CREATE TABLE statement into t and returns the number
// of errors. A table owned by a schema resolves its references against the
// schema's catalog. On failure the table keeps its structure, gets a
// recovered name and is flagged model-only.
func ParseTable(pc *Context, t *catalog.Table, sql string) int {
	log := pc.logger()
	c, errs := parser.Recognize(sql, parser.UnitTable)
	if len(errs) == 0 {
		var cat *catalog.Catalog
		if t.Owner != nil {
			cat = t.Owner.Owner
		}
		x := newExtractor(c, cat, t.Owner)
		x.genFKNames = true
		saved := *t
		if err := c.Run(func() { x.tableDetails(t) }); err == nil {
			t.ModelOnly = false
			var q refQueue
			x.commit(&q)
			resolveReferences(cat, &q)
			return 0
		}
		*t = saved
	}

	log.Debugf("table definition has errors: %v", c.Errors()[0])
	t.Name = failedName(recoverName(c, "TABLE"), t.Name)
	t.ModelOnly = true
	return len(c.Errors())
}

// ParseView parses a CREATE VIEW statement into v. A schema qualifier that
// does not match the owning schema marks the name with _WRONG_SCHEMA.
func ParseView(pc *Context, v *catalog.View, sql string) int {
	v.SQLDefinition = strings.TrimSpace(sql)
	c, errs := parser.Recognize(sql, parser.UnitView)
	if len(errs) == 0 {
		x := newExtractor(c, nil, v.Owner)
		saved := *v
		var qualifier string
		if err := c.Run(func() { qualifier, _ = x.viewDetails(v) }); err == nil {
			if qualifier != "" && v.Owner != nil && !catalog.SameName(v.Owner.Name, qualifier, pc.caseSensitive()) {
				v.Name += wrongSchemaSuffix
				v.OldName = v.Name
			}
			return 0
		}
		*v = saved
	}

	pc.logger().Debugf("view definition has errors: %v", c.Errors()[0])
	v.Name = failedName(recoverName(c, "VIEW"), v.Name)
	v.OldName = v.Name
	v.ModelOnly = true
	return len(c.Errors())
}

// ParseTrigger parses a CREATE TRIGGER statement into tr. The table named in
// the statement is not looked up; triggers stay where the caller put them.
func ParseTrigger(pc *Context, tr *catalog.Trigger, sql string) int {
	tr.SQLDefinition = strings.TrimSpace(sql)
	c, errs := parser.Recognize(sql, parser.UnitTrigger)
	if len(errs) == 0 {
		x := newExtractor(c, nil, nil)
		saved := *tr
		if err := c.Run(func() { x.triggerDetails(tr) }); err == nil {
			return 0
		}
		*tr = saved
	}

	pc.logger().Debugf("trigger definition has errors: %v", c.Errors()[0])
	tr.Name = failedName(recoverName(c, "TRIGGER"), tr.Name)
	tr.OldName = tr.Name

	// The ordering may still be needed to sort triggers.
	c.Reset(0)
	if c.AdvanceTo("ROW") {
		c.Advance()
		if c.IsAny("FOLLOWS", "PRECEDES") {
			tr.Ordering = c.Token().Upper()
			c.Advance()
			if c.Token().IsIdentifier() {
				tr.OtherTrigger = c.Unquoted()
			}
		}
	}
	tr.ModelOnly = true
	return len(c.Errors())
}

// ParseRoutine parses a CREATE PROCEDURE or CREATE FUNCTION statement into
// r. Routine names are compared case-insensitively when checking the schema
// qualifier against the owning schema.
func ParseRoutine(pc *Context, r *catalog.Routine, sql string) int {
	r.SQLDefinition = strings.TrimSpace(sql)
	c, errs := parser.Recognize(sql, parser.UnitRoutine)
	if len(errs) == 0 {
		x := newExtractor(c, nil, r.Owner)
		saved := *r
		var qualifier string
		if err := c.Run(func() { qualifier = x.routineDetails(r) }); err == nil {
			if qualifier != "" && r.Owner != nil && !catalog.SameName(r.Owner.Name, qualifier, false) {
				r.Name += wrongSchemaSuffix
				r.OldName = r.Name
			}
			return 0
		}
		*r = saved
	}

	pc.logger().Debugf("routine definition has errors: %v", c.Errors()[0])
	name, kind, _ := RoutineNameAndType(sql)
	r.Name = name + syntaxErrorSuffix
	r.Type = kind
	r.ModelOnly = true
	return len(c.Errors())
}

// findGroupRoutine returns the routine of s that a script entry named name
// of the given kind updates. Suffixes added by earlier failed parses are
// ignored and stored functions match loadable functions.
func findGroupRoutine(s *catalog.Schema, name, kind string) *catalog.Routine {
	for _, r := range s.Routines.Items() {
		candidate := strings.TrimSuffix(r.Name, wrongSchemaSuffix)
		candidate = strings.TrimSuffix(candidate, syntaxErrorSuffix)
		if catalog.SameName(candidate, name, false) && sameRoutineType(kind, r.Type) {
			return r
		}
	}
	return nil
}

func sameRoutineType(a, b string) bool {
	if a == b {
		return true
	}
	isFunc := func(t string) bool { return t == catalog.RoutineFunction || t == catalog.RoutineUdf }
	return isFunc(a) && isFunc(b)
}

// ParseRoutines parses a script of routine definitions that is edited as a
// group. Routines of the owning schema with a matching name are updated,
// new ones are added to the schema, and the group ends up listing exactly
// the routines of the script. Entries whose name cannot be determined are
// kept as <group>_SYNTAX_ERROR_<n>.
//
// The group must be owned by a schema.
func ParseRoutines(pc *Context, group *catalog.RoutineGroup, sql string) int {
	s := group.Owner
	if s == nil {
		panic(errors.Errorf("ddl: routine group %s has no schema", group.Name))
	}
	log := pc.logger()

	errorCount := 0
	syntaxErrors := 1
	group.Routines = nil

	for _, r := range splitter.Ranges(sql) {
		text := r.Text(sql)
		c, errs := parser.Recognize(text, parser.UnitRoutine)
		name, kind, _ := RoutineNameAndType(text)

		if name == catalog.RoutineUnknown || kind == catalog.RoutineUnknown {
			errorCount += len(errs)
			routine := catalog.NewRoutine(fmt.Sprintf("%s%s_%d", group.Name, syntaxErrorSuffix, syntaxErrors))
			syntaxErrors++
			routine.ModelOnly = true
			routine.SQLDefinition = strings.TrimSpace(text)
			s.AddRoutine(routine)
			routine.Sequence = len(group.Routines)
			group.Routines = append(group.Routines, routine)
			log.Debugf("routine group %s: unrecognized entry at offset %d", group.Name, r.Offset)
			continue
		}

		routine := findGroupRoutine(s, name, kind)
		if routine == nil {
			routine = catalog.NewRoutine(name)
			s.AddRoutine(routine)
		}

		failed := len(errs) > 0
		if !failed {
			x := newExtractor(c, s.Owner, s)
			saved := *routine
			if err := c.Run(func() { x.routineDetails(routine) }); err != nil {
				*routine = saved
				failed = true
			}
		}
		if failed {
			routine.Name = name + syntaxErrorSuffix
			routine.Type = kind
			routine.ModelOnly = true
		}
		errorCount += len(c.Errors())
		routine.SQLDefinition = strings.TrimSpace(text)

		listed := false
		for _, other := range group.Routines {
			if catalog.SameName(other.Name, routine.Name, false) {
				listed = true
				break
			}
		}
		if !listed {
			routine.Sequence = len(group.Routines)
			group.Routines = append(group.Routines, routine)
		}
	}
	return errorCount
}

// ParseIndex parses a CREATE INDEX statement into idx. Key parts are
// resolved against the table named in the statement when it can be found
// through the index's owner, otherwise against the owner itself.
func ParseIndex(pc *Context, idx *catalog.Index, sql string) int {
	c, errs := parser.Recognize(sql, parser.UnitIndex)
	if len(errs) == 0 {
		x := newExtractor(c, nil, nil)
		saved := *idx
		var ref Identifier
		if err := c.Run(func() { ref = x.indexDetails(idx) }); err == nil {
			resolveIndexColumns(idx, indexTable(idx.Owner, ref, pc.caseSensitive()))
			return 0
		}
		*idx = saved
	}

	pc.logger().Debugf("index definition has errors: %v", c.Errors()[0])
	idx.Name = failedName(recoverName(c, "INDEX"), idx.Name)
	return len(c.Errors())
}

func indexTable(owner *catalog.Table, ref Identifier, caseSensitive bool) *catalog.Table {
	if owner == nil || owner.Owner == nil {
		return owner
	}
	schema := owner.Owner
	if ref.Qualifier != "" && !catalog.SameName(schema.Name, ref.Qualifier, caseSensitive) {
		schema = nil
		if cat := owner.Owner.Owner; cat != nil {
			schema = cat.FindSchema(ref.Qualifier)
		}
	}
	if schema != nil {
		if t := schema.FindTable(ref.Name); t != nil {
			return t
		}
	}
	return owner
}

// ParseSchema parses a CREATE DATABASE statement into s. Charset defaults
// come from the owning catalog when there is one.
func ParseSchema(pc *Context, s *catalog.Schema, sql string) int {
	c, errs := parser.Recognize(sql, parser.UnitSchema)
	if len(errs) == 0 {
		x := newExtractor(c, s.Owner, nil)
		saved := *s
		if err := c.Run(func() { x.schemaDetails(s) }); err == nil {
			return 0
		}
		*s = saved
	}

	pc.logger().Debugf("schema definition has errors: %v", c.Errors()[0])
	name := recoverName(c, "DATABASE")
	if name == "" {
		name = recoverName(c, "SCHEMA")
	}
	s.Name = failedName(name, s.Name)
	return len(c.Errors())
}

// ParseEvent parses a CREATE EVENT statement into e.
func ParseEvent(pc *Context, e *catalog.Event, sql string) int {
	e.SQLDefinition = strings.TrimSpace(sql)
	c, errs := parser.Recognize(sql, parser.UnitEvent)
	if len(errs) == 0 {
		x := newExtractor(c, nil, e.Owner)
		saved := *e
		if err := c.Run(func() { x.eventDetails(e) }); err == nil {
			return 0
		}
		*e = saved
	}

	pc.logger().Debugf("event definition has errors: %v", c.Errors()[0])
	e.Name = failedName(recoverName(c, "EVENT"), e.Name)
	e.ModelOnly = true
	return len(c.Errors())
}

// ParseLogfileGroup parses a CREATE LOGFILE GROUP statement into g.
func ParseLogfileGroup(pc *Context, g *catalog.LogFileGroup, sql string) int {
	c, errs := parser.Recognize(sql, parser.UnitLogfileGroup)
	if len(errs) == 0 {
		x := newExtractor(c, nil, nil)
		saved := *g
		if err := c.Run(func() { x.logfileGroupDetails(g) }); err == nil {
			return 0
		}
		*g = saved
	}

	pc.logger().Debugf("logfile group definition has errors: %v", c.Errors()[0])
	g.Name = failedName(recoverName(c, "LOGFILE", "GROUP"), g.Name)
	g.ModelOnly = true
	return len(c.Errors())
}

// ParseServer parses a CREATE SERVER statement into s.
func ParseServer(pc *Context, s *catalog.Server, sql string) int {
	c, errs := parser.Recognize(sql, parser.UnitServer)
	if len(errs) == 0 {
		x := newExtractor(c, nil, nil)
		saved := *s
		if err := c.Run(func() { x.serverDetails(s) }); err == nil {
			return 0
		}
		*s = saved
	}

	pc.logger().Debugf("server definition has errors: %v", c.Errors()[0])
	s.Name = failedName(recoverName(c, "SERVER"), s.Name)
	s.ModelOnly = true
	return len(c.Errors())
}

// ParseTablespace parses a CREATE TABLESPACE statement into ts. cat, which
// may be nil, is searched for the log file group named by USE LOGFILE
// GROUP.
func ParseTablespace(pc *Context, cat *catalog.Catalog, ts *catalog.Tablespace, sql string) int {
	c, errs := parser.Recognize(sql, parser.UnitTablespace)
	if len(errs) == 0 {
		x := newExtractor(c, cat, nil)
		saved := *ts
		if err := c.Run(func() { x.tablespaceDetails(ts) }); err == nil {
			return 0
		}
		*ts = saved
	}

	pc.logger().Debugf("tablespace definition has errors: %v", c.Errors()[0])
	ts.Name = failedName(recoverName(c, "TABLESPACE"), ts.Name)
	ts.ModelOnly = true
	return len(c.Errors())
}

// DoSyntaxCheck reports the number of errors in sql when read as an object
// of the given kind: "table", "view", "routine", "trigger" or "event". Any
// other kind only gets the structural check. Nothing is modified.
func DoSyntaxCheck(pc *Context, sql, kind string) int {
	unit := parser.UnitStatement
	switch kind {
	case "table":
		unit = parser.UnitTable
	case "view":
		unit = parser.UnitView
	case "routine":
		unit = parser.UnitRoutine
	case "trigger":
		unit = parser.UnitTrigger
	case "event":
		unit = parser.UnitEvent
	}

	c, errs := parser.Recognize(sql, unit)
	if len(errs) > 0 {
		pc.logger().Debugf("syntax check of %s failed: %v", kind, errs[0])
		return len(errs)
	}
	if unit == parser.UnitStatement {
		return 0
	}
	x := newExtractor(c, nil, nil)
	_ = c.Run(func() {
		switch unit {
		case parser.UnitTable:
			x.tableDetails(catalog.NewTable(""))
		case parser.UnitView:
			x.viewDetails(catalog.NewView(""))
		case parser.UnitRoutine:
			x.routineDetails(catalog.NewRoutine(""))
		case parser.UnitTrigger:
			x.triggerDetails(catalog.NewTrigger(""))
		case parser.UnitEvent:
			x.eventDetails(catalog.NewEvent(""))
		}
		if !c.IsKind(lexer.EOF) && !(c.IsKind(lexer.Semicolon) && c.Peek(1).Kind == lexer.EOF) {
			c.Failf("unexpected %q", c.Text())
		}
	})
	return len(c.Errors())
}

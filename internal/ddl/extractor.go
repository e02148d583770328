package ddl

import (
	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/parser"
)

// extractor holds the state shared by the extraction functions while one
// statement is drained. Nothing in the catalog is modified during
// extraction; schema creation and references are collected and only
// committed by the caller once the statement was read without errors.
type extractor struct {
	c   *parser.Cursor
	cat *catalog.Catalog
	// schema is the current schema unqualified names belong to. May be nil.
	schema     *catalog.Schema
	genFKNames bool

	refs    refQueue
	schemas []string
	// pending is the batch queue of earlier statements. Nil outside a batch.
	pending *refQueue
}

func newExtractor(c *parser.Cursor, cat *catalog.Catalog, schema *catalog.Schema) *extractor {
	return &extractor{c: c, cat: cat, schema: schema}
}

// requireSchema records that the schema called name must exist once the
// statement is applied.
func (x *extractor) requireSchema(name string) {
	if name != "" {
		x.schemas = append(x.schemas, name)
	}
}

// commit creates the required schemas and hands the collected references to
// q.
func (x *extractor) commit(q *refQueue) {
	if x.cat != nil {
		for _, name := range x.schemas {
			ensureSchema(x.cat, name)
		}
	}
	q.append(&x.refs)
	x.schemas = nil
	x.refs.refs = nil
}

// schemaName returns the qualifier to use for an unqualified reference.
func (x *extractor) schemaName() string {
	if x.schema == nil {
		return ""
	}
	return x.schema.Name
}

// lookupSchema finds a schema without creating it. An empty name means the
// current schema.
func (x *extractor) lookupSchema(name string) *catalog.Schema {
	if name == "" {
		return x.schema
	}
	if x.cat != nil {
		if s := x.cat.FindSchema(name); s != nil {
			return s
		}
	}
	if x.schema != nil && catalog.SameName(x.schema.Name, name, x.cat != nil && x.cat.CaseSensitive) {
		return x.schema
	}
	return nil
}

// schemaDefaults returns the default charset and collation that apply to
// objects created in the schema called name.
func (x *extractor) schemaDefaults(name string) (string, string) {
	var cs, coll string
	if s := x.lookupSchema(name); s != nil {
		cs, coll = s.DefaultCharset, s.DefaultCollation
	} else if x.cat != nil {
		cs, coll = x.cat.DefaultCharset, x.cat.DefaultCollation
	}
	if coll == "" && cs != "" {
		coll = catalog.DefaultCollation(cs)
	}
	return cs, coll
}

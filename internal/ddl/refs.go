package ddl

import (
	"github.com/Limetric/mysqlcat/internal/catalog"
)

type refKind int

const (
	// refIndex resolves the key part names of an index against its table.
	refIndex refKind = iota
	// refReferencing resolves the table side columns of a foreign key
	// against the table that owns it.
	refReferencing
	// refReferenced resolves the referenced table and columns of a foreign
	// key and settles its covering index.
	refReferenced
	// refTable only makes sure the target table exists.
	refTable
)

// pendingRef is a name reference collected during extraction. Statements
// may refer to objects that appear later in the same batch, so names are
// resolved only after everything has been read.
type pendingRef struct {
	kind    refKind
	table   *catalog.Table
	target  Identifier
	columns []string
	index   *catalog.Index
	fk      *catalog.ForeignKey
}

// refQueue collects pending references in parse order.
type refQueue struct {
	refs []pendingRef
}

func (q *refQueue) push(r pendingRef) { q.refs = append(q.refs, r) }

func (q *refQueue) pushIndex(t *catalog.Table, idx *catalog.Index) {
	q.push(pendingRef{kind: refIndex, table: t, index: idx})
}

func (q *refQueue) append(other *refQueue) { q.refs = append(q.refs, other.refs...) }

// retarget points queued references to the table named from at to. A
// renamed table keeps the foreign keys that already referred to it.
func (q *refQueue) retarget(from, to Identifier, caseSensitive bool) {
	for i := range q.refs {
		r := &q.refs[i]
		if r.kind != refReferenced && r.kind != refTable {
			continue
		}
		if catalog.SameName(r.target.Qualifier, from.Qualifier, caseSensitive) &&
			catalog.SameName(r.target.Name, from.Name, caseSensitive) {
			r.target = to
		}
	}
}

// foreignKey returns the queued references of fk.
func (q *refQueue) foreignKey(fk *catalog.ForeignKey) []pendingRef {
	var out []pendingRef
	for _, r := range q.refs {
		if r.fk == fk {
			out = append(out, r)
		}
	}
	return out
}

// drop removes every reference owned by t.
func (q *refQueue) drop(t *catalog.Table) {
	kept := q.refs[:0]
	for _, r := range q.refs {
		if r.table != t {
			kept = append(kept, r)
		}
	}
	q.refs = kept
}

// ensureSchema returns the schema called name, creating it with the
// catalog's default character set when missing.
func ensureSchema(cat *catalog.Catalog, name string) *catalog.Schema {
	if s := cat.FindSchema(name); s != nil {
		return s
	}
	s := catalog.NewSchema(name)
	s.DefaultCharset, s.DefaultCollation = detailsForCharset(cat.DefaultCharset, cat.DefaultCollation, cat.DefaultCharset)
	cat.AddSchema(s)
	return s
}

// resolver runs the deferred resolution pass over a queue.
type resolver struct {
	cat *catalog.Catalog
}

// resolveReferences consumes refs in order. cat may be nil for a single
// table that is not attached to a catalog; targets outside the table's own
// schema then resolve to detached stub tables.
func resolveReferences(cat *catalog.Catalog, q *refQueue) {
	r := resolver{cat: cat}
	for _, ref := range q.refs {
		r.resolve(ref)
	}
	q.refs = nil
}

func (r resolver) resolve(ref pendingRef) {
	var target *catalog.Table
	if ref.kind == refReferenced || ref.kind == refTable {
		target = r.targetTable(ref)
		if ref.kind == refReferenced && ref.fk != nil {
			ref.fk.ReferencedTable = target
		}
		if ref.table != nil && ref.table.Engine != "" && target.Engine == "" {
			target.Engine = ref.table.Engine
		}
	}

	switch ref.kind {
	case refIndex:
		for _, ic := range ref.index.Columns {
			if col := ref.table.FindColumn(ic.Name); col != nil {
				ic.Column = col
			}
		}

	case refReferencing:
		for _, name := range ref.columns {
			if col := ref.table.FindColumn(name); col != nil {
				ref.fk.Columns = append(ref.fk.Columns, col)
			}
		}

	case refReferenced:
		r.resolveReferenced(ref, target)
	}
}

func (r resolver) targetTable(ref pendingRef) *catalog.Table {
	schema := r.targetSchema(ref)
	if schema != nil {
		if t := schema.FindTable(ref.target.Name); t != nil {
			return t
		}
	}
	if ref.table != nil && schema == nil && ref.table.Owner == nil && catalog.SameName(ref.table.Name, ref.target.Name, false) {
		return ref.table
	}

	stub := catalog.NewTable(ref.target.Name)
	stub.IsStub = true
	if schema != nil {
		schema.AddTable(stub)
	}
	return stub
}

func (r resolver) targetSchema(ref pendingRef) *catalog.Schema {
	var owner *catalog.Schema
	if ref.table != nil {
		owner = ref.table.Owner
	}
	if ref.target.Qualifier == "" {
		if owner != nil {
			return owner
		}
		if r.cat != nil {
			return r.cat.DefaultSchema
		}
		return nil
	}
	if r.cat != nil {
		return ensureSchema(r.cat, ref.target.Qualifier)
	}
	if owner != nil && catalog.SameName(owner.Name, ref.target.Qualifier, false) {
		return owner
	}
	return nil
}

func (r resolver) resolveReferenced(ref pendingRef, target *catalog.Table) {
	fk := ref.fk
	for i, name := range ref.columns {
		col := target.FindColumn(name)
		if col == nil {
			if !target.IsStub {
				// A dangling reference into a real table is not kept.
				ref.table.ForeignKeys.Remove(fk)
				return
			}
			col = stubColumn(name, fk, i)
			target.AddColumn(col)
		}
		fk.ReferencedColumns = append(fk.ReferencedColumns, col)
	}

	if len(ref.columns) == 0 {
		return
	}

	if idx := coveringIndex(ref.table, fk.Columns); idx != nil {
		if idx.Kind == "" {
			idx.Kind = catalog.IndexPlain
		}
		fk.Index = idx
		return
	}

	name := fk.Name
	if name == "" && len(fk.Columns) > 0 {
		name = fk.Columns[0].Name
	}
	idx := catalog.NewIndex(name)
	idx.Kind = catalog.IndexPlain
	for _, col := range fk.Columns {
		idx.AddColumn(&catalog.IndexColumn{Name: col.Name, Column: col})
	}
	ref.table.AddIndex(idx)
	fk.Index = idx
}

// stubColumn creates a column for a stub table, taking its type from the
// foreign key column at the same position when there is one.
func stubColumn(name string, fk *catalog.ForeignKey, pos int) *catalog.Column {
	col := catalog.NewColumn(name)
	if pos >= len(fk.Columns) {
		return col
	}
	tmpl := fk.Columns[pos]
	col.SimpleType = tmpl.SimpleType
	col.Precision = tmpl.Precision
	col.Scale = tmpl.Scale
	col.Length = tmpl.Length
	col.DatatypeExplicitParams = tmpl.DatatypeExplicitParams
	col.Flags = append([]string(nil), tmpl.Flags...)
	col.CharacterSet = tmpl.CharacterSet
	col.Collation = tmpl.Collation
	return col
}

// coveringIndex returns the first index of t whose leading key parts are
// exactly columns, in order.
func coveringIndex(t *catalog.Table, columns []*catalog.Column) *catalog.Index {
	for _, idx := range t.Indexes.Items() {
		if indexCovers(idx, columns) {
			return idx
		}
	}
	return nil
}

func indexCovers(idx *catalog.Index, columns []*catalog.Column) bool {
	if len(idx.Columns) < len(columns) {
		return false
	}
	for i, col := range columns {
		if idx.Columns[i].Column != col {
			return false
		}
	}
	return true
}

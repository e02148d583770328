package catalog

import "github.com/google/uuid"

// CopyTableInto makes dst a deep copy of src's structure. Identity, owner
// and the temporary flag of dst are kept; every copied child gets a new ID.
// Triggers are not copied since trigger names are unique per schema.
func CopyTableInto(dst, src *Table) {
	id, name, oldName, owner, temporary := dst.ID, dst.Name, dst.OldName, dst.Owner, dst.IsTemporary

	*dst = Table{
		ID:               id,
		Name:             name,
		OldName:          oldName,
		Owner:            owner,
		IsTemporary:      temporary,
		Comment:          src.Comment,
		Engine:           src.Engine,
		DefaultCharset:   src.DefaultCharset,
		DefaultCollation: src.DefaultCollation,
		Options:          src.Options,
		Partitioning:     copyPartitioning(src.Partitioning),
	}

	columns := make(map[*Column]*Column, src.Columns.Len())
	for _, c := range src.Columns.Items() {
		nc := *c
		nc.ID = uuid.New()
		nc.Flags = append([]string(nil), c.Flags...)
		dst.AddColumn(&nc)
		columns[c] = &nc
	}

	indexes := make(map[*Index]*Index, src.Indexes.Len())
	for _, idx := range src.Indexes.Items() {
		ni := *idx
		ni.ID = uuid.New()
		ni.Columns = nil
		for _, ic := range idx.Columns {
			nic := *ic
			if ic.Column != nil {
				nic.Column = columns[ic.Column]
			}
			ni.AddColumn(&nic)
		}
		dst.AddIndex(&ni)
		indexes[idx] = &ni
	}

	for _, fk := range src.ForeignKeys.Items() {
		nf := *fk
		nf.ID = uuid.New()
		nf.Columns = make([]*Column, 0, len(fk.Columns))
		for _, c := range fk.Columns {
			nf.Columns = append(nf.Columns, columns[c])
		}
		nf.ReferencedColumns = append([]*Column(nil), fk.ReferencedColumns...)
		if fk.Index != nil {
			nf.Index = indexes[fk.Index]
		}
		dst.AddForeignKey(&nf)
	}
}

func copyPartitioning(p Partitioning) Partitioning {
	out := p
	out.Definitions = copyPartitionDefinitions(p.Definitions)
	return out
}

func copyPartitionDefinitions(defs []*PartitionDefinition) []*PartitionDefinition {
	if defs == nil {
		return nil
	}
	out := make([]*PartitionDefinition, 0, len(defs))
	for _, d := range defs {
		nd := *d
		nd.Subpartitions = copyPartitionDefinitions(d.Subpartitions)
		out = append(out, &nd)
	}
	return out
}

package catalog

import (
	"strings"

	"github.com/google/btree"
)

// Parameter kinds of a simple datatype. They decide how a parenthesized
// argument after the type name is stored on a column.
const (
	ParamNone      = iota
	ParamLength    // CHAR(n): character or octet length
	ParamPrecision // DECIMAL(p,s): numeric precision and optional scale
	ParamList      // ENUM('a','b'): explicit value list
)

// SimpleDatatype is a built-in MySQL column type.
type SimpleDatatype struct {
	Name     string
	Group    string
	Synonyms []string
	Params   int
}

type datatypeEntry struct {
	key string
	dt  *SimpleDatatype
}

func datatypeLess(a, b datatypeEntry) bool { return a.key < b.key }

// Datatypes is a case-insensitive registry of simple datatypes addressable
// by name or synonym.
type Datatypes struct {
	tree  *btree.BTreeG[datatypeEntry]
	types []*SimpleDatatype
}

// NewDatatypes builds a registry from types.
func NewDatatypes(types []*SimpleDatatype) *Datatypes {
	d := &Datatypes{tree: btree.NewG(8, datatypeLess)}
	for _, dt := range types {
		d.types = append(d.types, dt)
		d.tree.ReplaceOrInsert(datatypeEntry{key: strings.ToLower(dt.Name), dt: dt})
		for _, syn := range dt.Synonyms {
			key := strings.ToLower(syn)
			if _, exists := d.tree.Get(datatypeEntry{key: key}); !exists {
				d.tree.ReplaceOrInsert(datatypeEntry{key: key, dt: dt})
			}
		}
	}
	return d
}

// Find returns the datatype named or aliased name, or nil. Runs of
// whitespace inside multi-word names are normalized.
func (d *Datatypes) Find(name string) *SimpleDatatype {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if e, ok := d.tree.Get(datatypeEntry{key: key}); ok {
		return e.dt
	}
	return nil
}

// All returns the registered datatypes in registration order.
func (d *Datatypes) All() []*SimpleDatatype { return d.types }

// Names returns every registered name and synonym in sorted order.
func (d *Datatypes) Names() []string {
	var names []string
	d.tree.Ascend(func(e datatypeEntry) bool {
		names = append(names, e.key)
		return true
	})
	return names
}

// MySQLDatatypes is the registry of MySQL's built-in column types.
var MySQLDatatypes = NewDatatypes([]*SimpleDatatype{
	{Name: "TINYINT", Group: "numeric", Synonyms: []string{"INT1", "BOOL", "BOOLEAN"}, Params: ParamPrecision},
	{Name: "SMALLINT", Group: "numeric", Synonyms: []string{"INT2"}, Params: ParamPrecision},
	{Name: "MEDIUMINT", Group: "numeric", Synonyms: []string{"INT3", "MIDDLEINT"}, Params: ParamPrecision},
	{Name: "INT", Group: "numeric", Synonyms: []string{"INTEGER", "INT4"}, Params: ParamPrecision},
	{Name: "BIGINT", Group: "numeric", Synonyms: []string{"INT8"}, Params: ParamPrecision},
	{Name: "DECIMAL", Group: "numeric", Synonyms: []string{"DEC", "NUMERIC", "FIXED"}, Params: ParamPrecision},
	{Name: "FLOAT", Group: "numeric", Synonyms: []string{"FLOAT4"}, Params: ParamPrecision},
	{Name: "DOUBLE", Group: "numeric", Synonyms: []string{"DOUBLE PRECISION", "REAL", "FLOAT8"}, Params: ParamPrecision},
	{Name: "BIT", Group: "numeric", Params: ParamLength},

	{Name: "DATE", Group: "datetime"},
	{Name: "TIME", Group: "datetime", Params: ParamNone},
	{Name: "DATETIME", Group: "datetime", Params: ParamNone},
	{Name: "TIMESTAMP", Group: "datetime", Params: ParamNone},
	{Name: "YEAR", Group: "datetime", Params: ParamNone},

	{Name: "CHAR", Group: "string", Synonyms: []string{"CHARACTER", "NCHAR", "NATIONAL CHAR", "NATIONAL CHARACTER"}, Params: ParamLength},
	{Name: "VARCHAR", Group: "string", Synonyms: []string{
		"CHARACTER VARYING", "CHAR VARYING", "NVARCHAR", "NATIONAL VARCHAR",
		"NATIONAL CHAR VARYING", "NATIONAL CHARACTER VARYING", "NCHAR VARCHAR",
		"NCHAR VARYING", "VARCHARACTER",
	}, Params: ParamLength},
	{Name: "BINARY", Group: "string", Params: ParamLength},
	{Name: "VARBINARY", Group: "string", Params: ParamLength},

	{Name: "TINYTEXT", Group: "text"},
	{Name: "TEXT", Group: "text", Params: ParamLength},
	{Name: "MEDIUMTEXT", Group: "text", Synonyms: []string{"LONG", "LONG VARCHAR", "LONG CHAR VARYING"}},
	{Name: "LONGTEXT", Group: "text"},
	{Name: "TINYBLOB", Group: "blob"},
	{Name: "BLOB", Group: "blob", Params: ParamLength},
	{Name: "MEDIUMBLOB", Group: "blob", Synonyms: []string{"LONG VARBINARY"}},
	{Name: "LONGBLOB", Group: "blob"},

	{Name: "ENUM", Group: "string", Params: ParamList},
	{Name: "SET", Group: "string", Params: ParamList},
	{Name: "JSON", Group: "text"},

	{Name: "GEOMETRY", Group: "gis"},
	{Name: "POINT", Group: "gis"},
	{Name: "LINESTRING", Group: "gis"},
	{Name: "POLYGON", Group: "gis"},
	{Name: "MULTIPOINT", Group: "gis"},
	{Name: "MULTILINESTRING", Group: "gis"},
	{Name: "MULTIPOLYGON", Group: "gis"},
	{Name: "GEOMETRYCOLLECTION", Group: "gis", Synonyms: []string{"GEOMCOLLECTION"}},
})

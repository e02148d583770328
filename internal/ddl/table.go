package ddl

import (
	"fmt"
	"strings"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/lexer"
)

// keyItemStarts are the keywords that begin a key or constraint inside a
// table element list.
var keyItemStarts = []string{"CONSTRAINT", "PRIMARY", "FOREIGN", "UNIQUE", "INDEX", "KEY", "FULLTEXT", "SPATIAL"}

// tableDetails drains a CREATE TABLE statement into t. It returns the
// schema qualifier of the table name and whether IF NOT EXISTS was given.
func (x *extractor) tableDetails(t *catalog.Table) (string, bool) {
	c := x.c
	c.Expect("CREATE")
	t.IsTemporary = c.SkipIf("TEMPORARY", 0)
	c.Expect("TABLE")
	ifNotExists := false
	if c.SkipIf("IF", 0) {
		c.Expect("NOT")
		c.Expect("EXISTS")
		ifNotExists = true
	}

	id := identifier(c)
	x.requireSchema(id.Qualifier)
	t.Name, t.OldName = id.Name, id.Name
	schemaName := id.Qualifier
	if schemaName == "" {
		schemaName = x.schemaName()
	}

	if c.Is("LIKE") || (c.IsKind(lexer.LParen) && c.PeekIs(1, "LIKE")) {
		paren := c.SkipKind(lexer.LParen)
		c.Expect("LIKE")
		x.copyLikeTable(t, identifier(c))
		if paren {
			c.ExpectKind(lexer.RParen)
		}
		x.trailingSource()
		return id.Qualifier, ifNotExists
	}

	t.Columns.Clear()
	t.Indexes.Clear()
	t.ForeignKeys.Clear()
	t.PrimaryKey = nil
	t.Options = catalog.TableOptions{}
	t.Partitioning = catalog.Partitioning{}

	if c.IsKind(lexer.LParen) && !isQueryStart(c.Peek(1)) {
		c.Advance()
		if c.Is("PARTITION") {
			x.partitioning(t)
		} else {
			for {
				x.createItem(t, schemaName)
				if !c.SkipKind(lexer.Comma) {
					break
				}
			}
		}
		c.ExpectKind(lexer.RParen)
	}

	x.tableOptions(t, id.Qualifier, schemaName)
	x.partitioning(t)
	x.trailingSource()
	return id.Qualifier, ifNotExists
}

func isQueryStart(t lexer.Token) bool {
	return t.Is("SELECT") || t.Is("WITH") || t.Is("VALUES") || t.Is("TABLE")
}

// trailingSource skips the table creation source of CREATE TABLE ... SELECT.
// The query does not contribute to the table structure.
func (x *extractor) trailingSource() {
	c := x.c
	if c.AtEnd() {
		return
	}
	if c.IsAny("IGNORE", "REPLACE", "AS", "SELECT", "WITH", "TABLE", "VALUES") || c.IsKind(lexer.LParen) {
		for !c.AtEnd() {
			c.SkipSubtree()
		}
		return
	}
	c.Failf("unexpected %q", c.Text())
}

// copyLikeTable makes t a copy of the table named src. Index columns and
// foreign keys of the copy are resolved again by name, since the source may
// still have references waiting in the batch queue.
func (x *extractor) copyLikeTable(t *catalog.Table, src Identifier) {
	schema := x.lookupSchema(src.Qualifier)
	if schema == nil && src.Qualifier == "" && x.cat != nil {
		schema = x.cat.DefaultSchema
	}
	if schema == nil {
		return
	}
	other := schema.FindTable(src.Name)
	if other == nil || other == t {
		return
	}
	catalog.CopyTableInto(t, other)
	for _, idx := range t.Indexes.Items() {
		for _, ic := range idx.Columns {
			if ic.Column == nil {
				x.refs.pushIndex(t, idx)
				break
			}
		}
	}
	for i, fk := range other.ForeignKeys.Items() {
		x.requeueForeignKey(t, fk, t.ForeignKeys.At(i))
	}
}

// requeueForeignKey queues the references of fk, the copy of src on t. Names
// come from the resolved source or from its references still queued.
func (x *extractor) requeueForeignKey(t *catalog.Table, src, fk *catalog.ForeignKey) {
	columns := fkColumnNames(src.Columns)
	refColumns := fkColumnNames(src.ReferencedColumns)
	var target Identifier
	if rt := src.ReferencedTable; rt != nil {
		target.Name = rt.Name
		if rt.Owner != nil {
			target.Qualifier = rt.Owner.Name
		}
	}
	if x.pending != nil {
		for _, r := range x.pending.foreignKey(src) {
			switch r.kind {
			case refReferencing:
				columns = r.columns
			case refReferenced:
				target, refColumns = r.target, r.columns
			}
		}
	}
	if target.Name == "" {
		return
	}

	fk.Columns, fk.ReferencedTable, fk.ReferencedColumns, fk.Index = nil, nil, nil, nil
	x.refs.push(pendingRef{kind: refReferencing, table: t, target: Identifier{Name: t.Name}, columns: columns, fk: fk})
	x.refs.push(pendingRef{kind: refReferenced, table: t, target: target, columns: refColumns, fk: fk})
}

func fkColumnNames(columns []*catalog.Column) []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != nil {
			names = append(names, c.Name)
		}
	}
	return names
}

// createItem reads one element of a table element list.
func (x *extractor) createItem(t *catalog.Table, schemaName string) {
	c := x.c
	switch {
	case c.IsAny(keyItemStarts...):
		x.keyItem(t, schemaName)
	case c.Is("CHECK"):
		x.skipCheck()
	default:
		x.columnDefinition(t, schemaName)
	}
}

// skipCheck moves past CHECK (expr) [[NOT] ENFORCED]. The server did not
// enforce check constraints for a long time and they are not modeled.
func (x *extractor) skipCheck() {
	c := x.c
	c.Expect("CHECK")
	if !c.IsKind(lexer.LParen) {
		c.Failf("expected ( after CHECK but found %q", c.Text())
	}
	c.SkipSubtree()
	c.SkipIf("NOT", 0)
	c.SkipIf("ENFORCED", 0)
}

func (x *extractor) columnDefinition(t *catalog.Table, schemaName string) {
	c := x.c
	// Qualified column names must point to this table anyway.
	id := columnIdentifier(c)
	if t.FindColumn(id.Column) != nil {
		c.Failf("duplicate column name %q", id.Column)
	}
	col := catalog.NewColumn(id.Column)
	x.dataTypeAndAttributes(t, col)
	t.AddColumn(col)

	if c.Is("REFERENCES") {
		// Inline references are accepted but ignored by the server. They
		// are still modeled as foreign keys.
		fk := catalog.NewForeignKey("")
		fk.Columns = []*catalog.Column{col}
		fk.Many = true
		fk.ReferencedMandatory = col.IsNotNull
		t.AddForeignKey(fk)
		target, columns := x.columnReference(fk, schemaName)
		x.refs.push(pendingRef{kind: refReferenced, table: t, target: target, columns: columns, fk: fk})
	}
}

// keyItem reads a key, index or constraint definition.
func (x *extractor) keyItem(t *catalog.Table, schemaName string) {
	c := x.c
	name := ""
	if c.SkipIf("CONSTRAINT", 0) {
		name = optionalName(c, "PRIMARY", "FOREIGN", "UNIQUE", "CHECK")
	}

	switch {
	case c.Is("CHECK"):
		x.skipCheck()
		return

	case c.Is("PRIMARY"):
		c.Advance()
		c.Expect("KEY")
		if t.PrimaryKey != nil {
			c.Failf("multiple primary keys defined")
		}
		idx := catalog.NewIndex("PRIMARY")
		idx.IsPrimary = true
		idx.Unique = true
		idx.Kind = catalog.IndexPrimary
		x.refIndexDetails(t, idx)
		t.AddIndex(idx)
		return

	case c.Is("FOREIGN"):
		c.Advance()
		c.Expect("KEY")
		if n := optionalName(c); n != "" && name == "" {
			name = n
		}
		if name == "" && x.genFKNames {
			name = generateFKName()
		}
		fk := catalog.NewForeignKey(name)
		columns := namesList(c)
		x.refs.push(pendingRef{kind: refReferencing, table: t, target: Identifier{Qualifier: schemaName, Name: t.Name}, columns: columns, fk: fk})
		target, refColumns := x.columnReference(fk, schemaName)
		t.AddForeignKey(fk)
		x.refs.push(pendingRef{kind: refReferenced, table: t, target: target, columns: refColumns, fk: fk})
		return
	}

	idx := catalog.NewIndex("")
	switch {
	case c.SkipIf("UNIQUE", 0):
		idx.Unique = true
		idx.Kind = catalog.IndexUnique
		if !c.SkipIf("INDEX", 0) {
			c.SkipIf("KEY", 0)
		}
	case c.IsAny("INDEX", "KEY"):
		idx.Kind = formatIndexType(c.Text())
		c.Advance()
	case c.IsAny("FULLTEXT", "SPATIAL"):
		idx.Kind = formatIndexType(c.Text())
		c.Advance()
		if !c.SkipIf("INDEX", 0) {
			c.SkipIf("KEY", 0)
		}
	default:
		c.Failf("unexpected %q in key definition", c.Text())
	}

	if n := x.refIndexDetails(t, idx); name == "" {
		name = n
	}
	if name == "" && len(idx.Columns) > 0 {
		name = uniqueIndexName(t, idx.Columns[0].Name)
	}
	if t.FindIndex(name) != nil {
		c.Failf("duplicate key name %q", name)
	}
	idx.Name, idx.OldName = name, name
	t.AddIndex(idx)
}

// uniqueIndexName returns base or base_2, base_3... whichever is not yet
// used as an index name of t.
func uniqueIndexName(t *catalog.Table, base string) string {
	name := base
	for i := 2; t.FindIndex(name) != nil; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}

// refIndexDetails reads [name] [USING type] (key parts) [options] of a key
// defined inside CREATE TABLE or ALTER TABLE. The key parts are resolved
// later. It returns the index name if one was given.
func (x *extractor) refIndexDetails(t *catalog.Table, idx *catalog.Index) string {
	c := x.c
	name := optionalName(c, "USING", "TYPE")
	x.indexTypeClause(idx)
	x.indexColumns(idx)
	x.refs.pushIndex(t, idx)
	x.indexOptions(idx)
	return name
}

func (x *extractor) indexTypeClause(idx *catalog.Index) {
	c := x.c
	if c.IsAny("USING", "TYPE") {
		c.Advance()
		idx.IndexType = strings.ToUpper(c.Text())
		c.Advance()
	}
}

// indexColumns reads the parenthesized key part list.
func (x *extractor) indexColumns(idx *catalog.Index) {
	c := x.c
	idx.Columns = nil
	c.ExpectKind(lexer.LParen)
	for {
		ic := &catalog.IndexColumn{}
		if c.IsKind(lexer.LParen) {
			// Functional key part.
			ic.Name = c.TextForTree()
			c.SkipSubtree()
		} else {
			ic.Name = columnIdentifier(c).Column
			if c.SkipKind(lexer.LParen) {
				if !c.IsKind(lexer.Number) {
					c.Failf("expected prefix length but found %q", c.Text())
				}
				ic.Length = int(atoi(c.Text()))
				c.Advance()
				c.ExpectKind(lexer.RParen)
			}
		}
		if c.IsAny("ASC", "DESC") {
			ic.Descending = c.Is("DESC")
			c.Advance()
		}
		idx.AddColumn(ic)
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	c.ExpectKind(lexer.RParen)
}

func (x *extractor) indexOptions(idx *catalog.Index) {
	c := x.c
	for {
		switch {
		case c.IsAny("USING", "TYPE"):
			x.indexTypeClause(idx)
		case c.SkipIf("KEY_BLOCK_SIZE", 0):
			idx.KeyBlockSize = int(atoi(optionValue(c)))
		case c.SkipIf("COMMENT", 0):
			idx.Comment = optionValue(c)
		case c.Is("WITH") && c.PeekIs(1, "PARSER"):
			c.Next(2)
			idx.WithParser = c.Unquoted()
			c.Advance()
		case c.IsAny("VISIBLE", "INVISIBLE"):
			c.Advance()
		case c.IsAny("ENGINE_ATTRIBUTE", "SECONDARY_ENGINE_ATTRIBUTE"):
			c.Advance()
			optionValue(c)
		default:
			return
		}
	}
}

// columnReference reads REFERENCES tbl [(cols)] [MATCH ...] [ON DELETE
// rule] [ON UPDATE rule]. Unqualified targets are qualified with
// schemaName.
func (x *extractor) columnReference(fk *catalog.ForeignKey, schemaName string) (Identifier, []string) {
	c := x.c
	c.Expect("REFERENCES")
	target := identifier(c)
	if target.Qualifier == "" {
		target.Qualifier = schemaName
	}

	var columns []string
	if c.IsKind(lexer.LParen) {
		columns = namesList(c)
	}
	c.SkipIf("MATCH", 1)

	for c.SkipIf("ON", 0) {
		isDelete := c.Is("DELETE")
		if !isDelete && !c.Is("UPDATE") {
			c.Failf("expected DELETE or UPDATE but found %q", c.Text())
		}
		c.Advance()
		var rule string
		switch {
		case c.IsAny("RESTRICT", "CASCADE"):
			rule = c.Token().Upper()
			c.Advance()
		case c.IsAny("SET", "NO"):
			rule = c.Token().Upper() + " " + c.Peek(1).Upper()
			c.Next(2)
		default:
			c.Failf("invalid referential action %q", c.Text())
		}
		if isDelete {
			fk.DeleteRule = rule
		} else {
			fk.UpdateRule = rule
		}
	}
	return target, columns
}

// readTypeName reads a possibly multi-word type name.
func (x *extractor) readTypeName() string {
	c := x.c
	if !c.IsKind(lexer.Word) {
		c.Failf("expected data type but found %q", c.Text())
	}
	name := c.Text()
	appendWord := func() {
		name += " " + c.Text()
		c.Advance()
	}
	switch c.Token().Upper() {
	case "DOUBLE":
		c.Advance()
		c.SkipIf("PRECISION", 0)
	case "NATIONAL":
		c.Advance()
		appendWord()
		if c.Is("VARYING") {
			appendWord()
		}
	case "NCHAR":
		c.Advance()
		if c.IsAny("VARCHAR", "VARYING") {
			appendWord()
		}
	case "CHAR", "CHARACTER":
		c.Advance()
		if c.Is("VARYING") {
			appendWord()
		}
	case "LONG":
		c.Advance()
		switch {
		case c.Is("CHAR") && c.PeekIs(1, "VARYING"):
			appendWord()
			appendWord()
		case c.IsAny("VARBINARY", "VARCHAR"):
			appendWord()
		}
	default:
		c.Advance()
	}
	return name
}

// dataTypeAndAttributes reads a column's type, type flags and attributes.
// Attributes may come in any order and repeat; the last one wins.
func (x *extractor) dataTypeAndAttributes(t *catalog.Table, col *catalog.Column) {
	c := x.c
	precision, scale, length := -1, -1, -1
	explicitParams := ""
	explicitDefault, explicitNull := false, false

	col.DefaultValue = ""
	col.AutoIncrement = false
	col.Flags = nil

	serial := c.Is("SERIAL")
	typeName := x.readTypeName()
	if serial {
		typeName = "BIGINT"
	}
	dt := catalog.MySQLDatatypes.Find(typeName)
	if dt == nil {
		c.Failf("unknown data type %q", typeName)
	}
	if serial {
		// SERIAL is BIGINT UNSIGNED NOT NULL AUTO_INCREMENT UNIQUE.
		col.AddFlag("UNSIGNED")
		col.IsNotNull = true
		col.AutoIncrement = true
		explicitNull = true
		x.addUniqueIndex(t, col)
	}

	if c.IsKind(lexer.LParen) {
		switch dt.Params {
		case catalog.ParamList:
			explicitParams = "(" + valueList(c, true) + ")"
		case catalog.ParamLength:
			c.Advance()
			if c.IsKind(lexer.Number) {
				length = int(atoi(c.Text()))
				c.Advance()
			}
			c.ExpectKind(lexer.RParen)
		default:
			c.Advance()
			n := int(atoi(c.Text()))
			if dt.Params == catalog.ParamPrecision {
				precision = n
			} else {
				length = n
			}
			c.Advance()
			if c.SkipKind(lexer.Comma) {
				scale = int(atoi(c.Text()))
				c.Advance()
			}
			c.ExpectKind(lexer.RParen)
		}
	}

	x.typeFlags(t, col)

attributes:
	for {
		switch {
		case c.Is("NOT") && c.PeekIs(1, "NULL"):
			c.Next(2)
			col.IsNotNull = true
			explicitNull = true
		case c.SkipIf("NULL", 0):
			col.IsNotNull = false
			explicitNull = true
		case c.Is("DEFAULT"):
			x.defaultValue(col)
			explicitDefault = true
		case c.Is("ON") && c.PeekIs(1, "UPDATE"):
			x.onUpdate(col)
			explicitDefault = true
		case c.SkipIf("AUTO_INCREMENT", 0):
			col.AutoIncrement = true
		case c.Is("SERIAL"):
			c.Advance()
			c.Expect("DEFAULT")
			c.Expect("VALUE")
			col.IsNotNull = true
			col.AutoIncrement = true
			x.addUniqueIndex(t, col)
		case c.SkipIf("UNIQUE", 0):
			c.SkipIf("KEY", 0)
			x.addUniqueIndex(t, col)
		case c.IsAny("PRIMARY", "KEY"):
			c.SkipIf("PRIMARY", 0)
			c.Expect("KEY")
			x.addPrimaryKey(t, col)
		case c.SkipIf("COMMENT", 0):
			col.Comment = optionValue(c)
		case c.SkipIf("COLLATE", 0):
			c.SkipKind(lexer.Equal)
			col.CharacterSet, col.Collation = detailsForCollation(c.Unquoted(), t.DefaultCollation)
			c.Advance()
		case c.IsAny("COLUMN_FORMAT", "STORAGE"):
			c.Next(2)
		case c.Is("CHECK"):
			x.skipCheck()
		case c.Is("CONSTRAINT") && (c.PeekIs(1, "CHECK") || c.PeekIs(2, "CHECK")):
			c.Advance()
			optionalName(c, "CHECK")
			x.skipCheck()
		case c.SkipIf("VISIBLE", 0), c.SkipIf("INVISIBLE", 0):
		case c.SkipIf("SRID", 0):
			c.Advance()
		case c.IsAny("ENGINE_ATTRIBUTE", "SECONDARY_ENGINE_ATTRIBUTE"):
			c.Advance()
			optionValue(c)
		case c.IsAny("GENERATED", "AS"):
			x.generatedColumn(col)
		default:
			break attributes
		}
	}

	col.SimpleType = dt
	col.Precision = precision
	col.Scale = scale
	col.Length = length
	col.DatatypeExplicitParams = explicitParams

	if dt.Name == "TIMESTAMP" && !explicitNull {
		col.IsNotNull = true
	}
	if !col.IsNotNull && !explicitDefault {
		col.DefaultValue = "NULL"
		col.DefaultValueIsNull = true
	}
}

// typeFlags reads SIGNED, UNSIGNED, ZEROFILL, ASCII, UNICODE, BINARY and a
// character set following the type.
func (x *extractor) typeFlags(t *catalog.Table, col *catalog.Column) {
	c := x.c
	charset := func() {
		col.CharacterSet, col.Collation = detailsForCharset(charsetName(c), col.Collation, t.DefaultCharset)
	}
	for {
		switch {
		case c.IsAny("SIGNED", "UNSIGNED", "ZEROFILL"):
			col.AddFlag(c.Token().Upper())
			c.Advance()
		case c.IsAny("ASCII", "UNICODE"):
			col.AddFlag(c.Token().Upper())
			c.Advance()
			if c.SkipIf("BINARY", 0) {
				col.AddFlag("BINARY")
			}
		case c.SkipIf("BINARY", 0):
			col.AddFlag("BINARY")
			switch {
			case c.IsAny("ASCII", "UNICODE"):
				col.AddFlag(c.Token().Upper())
				c.Advance()
			case isCharsetStart(c):
				charset()
			}
		case isCharsetStart(c):
			charset()
			if c.SkipIf("BINARY", 0) {
				col.AddFlag("BINARY")
			}
		default:
			return
		}
	}
}

func isNowKeyword(t lexer.Token) bool {
	return t.Is("NOW") || t.Is("CURRENT_TIMESTAMP") || t.Is("LOCALTIME") || t.Is("LOCALTIMESTAMP")
}

// nowPrecision reads the optional (fsp) after a NOW synonym. Empty
// parentheses are dropped.
func (x *extractor) nowPrecision() string {
	c := x.c
	if !c.SkipKind(lexer.LParen) {
		return ""
	}
	p := ""
	if c.IsKind(lexer.Number) {
		p = c.Text()
		c.Advance()
	}
	c.ExpectKind(lexer.RParen)
	if p == "" {
		return ""
	}
	return "(" + p + ")"
}

// defaultValue reads DEFAULT value. NOW synonyms are stored as
// CURRENT_TIMESTAMP, keeping an ON UPDATE clause read before. String
// literals keep their quotes so an empty string differs from no default.
func (x *extractor) defaultValue(col *catalog.Column) {
	c := x.c
	existing := col.DefaultValue
	if !strings.HasPrefix(existing, "ON UPDATE ") {
		existing = ""
	}
	c.Expect("DEFAULT")
	col.DefaultValueIsNull = false

	var value string
	switch {
	case isNowKeyword(c.Token()):
		c.Advance()
		value = "CURRENT_TIMESTAMP" + x.nowPrecision()
		if existing != "" {
			value += " " + existing
		}
	case c.IsKind(lexer.Minus) || c.IsKind(lexer.Plus):
		if c.IsKind(lexer.Minus) {
			value = "-"
		}
		c.Advance()
		value += c.Text()
		c.Advance()
	case c.IsKind(lexer.LParen):
		value = c.TextForTree()
		c.SkipSubtree()
	case c.IsAny("DATE", "TIME", "TIMESTAMP") && c.Peek(1).Kind == lexer.String:
		value = c.Token().Upper() + " " + c.Peek(1).Text
		c.Next(2)
	case c.IsKind(lexer.Word) && c.Peek(1).Kind == lexer.String && c.Peek(1).Offset == c.Token().End:
		// Introducers and bit/hex literals: _utf8mb4'x', b'01', x'1f'.
		value = c.Text() + c.Peek(1).Text
		c.Next(2)
	default:
		if c.AtEnd() {
			c.Failf("missing default value")
		}
		value = c.Text()
		c.Advance()
	}

	col.DefaultValue = value
	if strings.EqualFold(value, "NULL") {
		col.DefaultValueIsNull = true
	}
}

// onUpdate reads ON UPDATE now. It is stored together with a
// CURRENT_TIMESTAMP default in the default value.
func (x *extractor) onUpdate(col *catalog.Column) {
	c := x.c
	c.Next(2)
	if !isNowKeyword(c.Token()) {
		c.Failf("expected CURRENT_TIMESTAMP after ON UPDATE but found %q", c.Text())
	}
	c.Advance()
	clause := "ON UPDATE CURRENT_TIMESTAMP" + x.nowPrecision()

	current := col.DefaultValue
	if i := strings.Index(current, " ON UPDATE "); i >= 0 {
		current = current[:i]
	}
	if strings.HasPrefix(current, "CURRENT_TIMESTAMP") {
		col.DefaultValue = current + " " + clause
	} else {
		col.DefaultValue = clause
	}
	col.DefaultValueIsNull = false
}

// generatedColumn reads [GENERATED ALWAYS] AS (expr) [VIRTUAL | STORED].
func (x *extractor) generatedColumn(col *catalog.Column) {
	c := x.c
	if c.SkipIf("GENERATED", 0) {
		c.Expect("ALWAYS")
	}
	c.Expect("AS")
	col.Generated = true
	col.Expression = parenBody(c)
	if c.IsAny("VIRTUAL", "STORED") {
		col.GeneratedStorage = c.Token().Upper()
		c.Advance()
	}
}

// addUniqueIndex adds a single column unique index as created by an inline
// UNIQUE or SERIAL.
func (x *extractor) addUniqueIndex(t *catalog.Table, col *catalog.Column) {
	idx := catalog.NewIndex(uniqueIndexName(t, col.Name))
	idx.Kind = catalog.IndexUnique
	idx.Unique = true
	idx.AddColumn(&catalog.IndexColumn{Name: col.Name, Column: col})
	t.AddIndex(idx)
}

// addPrimaryKey makes col the primary key of t.
func (x *extractor) addPrimaryKey(t *catalog.Table, col *catalog.Column) {
	if t.PrimaryKey != nil {
		x.c.Failf("multiple primary keys defined")
	}
	idx := catalog.NewIndex("PRIMARY")
	idx.Kind = catalog.IndexPrimary
	idx.IsPrimary = true
	idx.Unique = true
	idx.AddColumn(&catalog.IndexColumn{Name: col.Name, Column: col})
	t.AddIndex(idx)
}

// tableOptions reads the table option list. qualifier is the schema named
// in the statement, schemaName the one the table ends up in.
func (x *extractor) tableOptions(t *catalog.Table, qualifier, schemaName string) {
	c := x.c
	defaultCharset, defaultCollation := x.schemaDefaults(qualifier)
	opts := &t.Options

	for {
		switch {
		case c.SkipKind(lexer.Comma):
		case c.IsAny("ENGINE", "TYPE"):
			c.Advance()
			t.Engine = optionValue(c)
		case c.SkipIf("MAX_ROWS", 0):
			opts.MaxRows = optionValue(c)
		case c.SkipIf("MIN_ROWS", 0):
			opts.MinRows = optionValue(c)
		case c.SkipIf("AVG_ROW_LENGTH", 0):
			opts.AvgRowLength = optionValue(c)
		case c.SkipIf("PASSWORD", 0):
			opts.Password = optionValue(c)
		case c.SkipIf("COMMENT", 0):
			t.Comment = optionValue(c)
		case c.SkipIf("AUTO_INCREMENT", 0):
			opts.NextAutoInc = optionValue(c)
		case c.SkipIf("PACK_KEYS", 0):
			opts.PackKeys = optionValue(c)
		case c.SkipIf("STATS_AUTO_RECALC", 0):
			opts.StatsAutoRecalc = optionValue(c)
		case c.SkipIf("STATS_PERSISTENT", 0):
			opts.StatsPersistent = optionValue(c)
		case c.SkipIf("STATS_SAMPLE_PAGES", 0):
			opts.StatsSamplePages = int(atoi(optionValue(c)))
		case c.SkipIf("CHECKSUM", 0), c.SkipIf("TABLE_CHECKSUM", 0):
			opts.Checksum = int(atoi(optionValue(c)))
		case c.SkipIf("DELAY_KEY_WRITE", 0):
			opts.DelayKeyWrite = int(atoi(optionValue(c)))
		case c.SkipIf("ROW_FORMAT", 0):
			opts.RowFormat = strings.ToUpper(optionValue(c))
		case c.SkipIf("UNION", 0):
			opts.MergeUnion = x.mergeUnion(t, schemaName)
		case c.SkipIf("INSERT_METHOD", 0):
			opts.MergeInsert = strings.ToUpper(optionValue(c))
		case c.Is("DATA") && c.PeekIs(1, "DIRECTORY"):
			c.Next(2)
			opts.DataDirectory = optionValue(c)
		case c.Is("INDEX") && c.PeekIs(1, "DIRECTORY"):
			c.Next(2)
			opts.IndexDirectory = optionValue(c)
		case c.SkipIf("TABLESPACE", 0):
			opts.Tablespace = optionValue(c)
			if c.SkipIf("STORAGE", 0) {
				c.Advance()
			}
		case c.SkipIf("STORAGE", 1):
		case c.SkipIf("CONNECTION", 0):
			opts.Connection = optionValue(c)
		case c.SkipIf("KEY_BLOCK_SIZE", 0):
			opts.KeyBlockSize = optionValue(c)
		case c.Is("DEFAULT") && (isCharsetStartAt(c.Peek(1), c.Peek(2)) || c.PeekIs(1, "COLLATE")):
			c.Advance()
		case isCharsetStart(c):
			t.DefaultCharset, t.DefaultCollation = detailsForCharset(charsetName(c), defaultCollation, defaultCharset)
		case c.SkipIf("COLLATE", 0):
			c.SkipKind(lexer.Equal)
			t.DefaultCharset, t.DefaultCollation = detailsForCollation(c.Unquoted(), defaultCollation)
			c.Advance()
		case c.IsAny("COMPRESSION", "ENCRYPTION", "ENGINE_ATTRIBUTE", "SECONDARY_ENGINE_ATTRIBUTE", "AUTOEXTEND_SIZE", "SECONDARY_ENGINE"):
			c.Advance()
			optionValue(c)
		default:
			return
		}
	}
}

func isCharsetStartAt(t, next lexer.Token) bool {
	return t.Is("CHARSET") || ((t.Is("CHAR") || t.Is("CHARACTER")) && next.Is("SET"))
}

// mergeUnion reads the table list of a MERGE table. Unqualified members are
// qualified with schemaName so the stored value does not depend on context.
func (x *extractor) mergeUnion(t *catalog.Table, schemaName string) string {
	c := x.c
	c.SkipKind(lexer.Equal)
	c.ExpectKind(lexer.LParen)
	var members []string
	for {
		id := identifier(c)
		if id.Qualifier == "" {
			id.Qualifier = schemaName
		} else {
			x.requireSchema(id.Qualifier)
		}
		members = append(members, id.String())
		x.refs.push(pendingRef{kind: refTable, table: t, target: id})
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	c.ExpectKind(lexer.RParen)
	return strings.Join(members, ", ")
}

// partitioning reads PARTITION BY ... when present.
func (x *extractor) partitioning(t *catalog.Table) {
	c := x.c
	if !c.Is("PARTITION") {
		return
	}
	c.Advance()
	c.Expect("BY")
	p := &t.Partitioning
	*p = catalog.Partitioning{}

	p.Type = x.partitionType()
	switch {
	case strings.HasSuffix(p.Type, "HASH"):
		p.Expression = parenBody(c)
	case strings.HasSuffix(p.Type, "KEY"):
		p.KeyAlgorithm = x.keyAlgorithm()
		p.Expression = valueList(c, false)
	default:
		// RANGE or LIST, with an expression or a COLUMNS list.
		if c.SkipIf("COLUMNS", 0) {
			p.Expression = valueList(c, false)
		} else {
			p.Expression = parenBody(c)
		}
	}

	if c.SkipIf("PARTITIONS", 0) {
		p.Count = int(atoi(c.Text()))
		c.Advance()
	}

	if c.SkipIf("SUBPARTITION", 0) {
		c.Expect("BY")
		p.SubType = x.partitionType()
		switch {
		case strings.HasSuffix(p.SubType, "HASH"):
			p.SubExpression = parenBody(c)
		case strings.HasSuffix(p.SubType, "KEY"):
			p.SubKeyAlgorithm = x.keyAlgorithm()
			p.SubExpression = valueList(c, false)
		default:
			c.Failf("invalid subpartition type %s", p.SubType)
		}
		if c.SkipIf("SUBPARTITIONS", 0) {
			p.SubCount = int(atoi(c.Text()))
			c.Advance()
		}
	}

	if c.SkipKind(lexer.LParen) {
		for {
			p.Definitions = append(p.Definitions, x.partitionDefinition(false))
			if !c.SkipKind(lexer.Comma) {
				break
			}
		}
		c.ExpectKind(lexer.RParen)
	}

	if p.Count == 0 {
		p.Count = len(p.Definitions)
	}
	if len(p.Definitions) > 0 {
		p.SubCount = len(p.Definitions[0].Subpartitions)
	}
}

func (x *extractor) partitionType() string {
	c := x.c
	prefix := ""
	if c.SkipIf("LINEAR", 0) {
		prefix = "LINEAR "
	}
	kind := c.Token().Upper()
	switch kind {
	case "HASH", "KEY", "RANGE", "LIST":
	default:
		c.Failf("invalid partition type %q", c.Text())
	}
	c.Advance()
	return prefix + kind
}

func (x *extractor) keyAlgorithm() int {
	c := x.c
	if !c.SkipIf("ALGORITHM", 0) {
		return 0
	}
	c.SkipKind(lexer.Equal)
	n := int(atoi(c.Text()))
	c.Advance()
	return n
}

// partitionDefinition reads one PARTITION clause, or a SUBPARTITION clause
// when sub is set. Subpartitions do not nest further.
func (x *extractor) partitionDefinition(sub bool) *catalog.PartitionDefinition {
	c := x.c
	if sub {
		c.Expect("SUBPARTITION")
	} else {
		c.Expect("PARTITION")
	}
	if !c.Token().IsIdentifier() {
		c.Failf("expected partition name but found %q", c.Text())
	}
	d := &catalog.PartitionDefinition{Name: c.Unquoted()}
	c.Advance()

	if !sub && c.SkipIf("VALUES", 0) {
		if c.SkipIf("LESS", 0) {
			c.Expect("THAN")
			if c.SkipIf("MAXVALUE", 0) {
				d.Value = "MAXVALUE"
			} else {
				d.Value = valueList(c, true)
			}
		} else {
			c.Expect("IN")
			d.Value = valueList(c, true)
		}
	}

	for done := false; !done; {
		switch {
		case c.SkipIf("TABLESPACE", 0):
			d.Tablespace = optionValue(c)
		case c.Is("STORAGE") && c.PeekIs(1, "ENGINE"), c.Is("ENGINE"):
			c.SkipIf("STORAGE", 0)
			c.Advance()
			d.Engine = optionValue(c)
		case c.SkipIf("NODEGROUP", 0):
			d.NodeGroupID = int(atoi(optionValue(c)))
		case c.SkipIf("MAX_ROWS", 0):
			d.MaxRows = optionValue(c)
		case c.SkipIf("MIN_ROWS", 0):
			d.MinRows = optionValue(c)
		case c.Is("DATA") && c.PeekIs(1, "DIRECTORY"):
			c.Next(2)
			d.DataDirectory = optionValue(c)
		case c.Is("INDEX") && c.PeekIs(1, "DIRECTORY"):
			c.Next(2)
			d.IndexDirectory = optionValue(c)
		case c.SkipIf("COMMENT", 0):
			d.Comment = optionValue(c)
		default:
			done = true
		}
	}

	if !sub && c.SkipKind(lexer.LParen) {
		for {
			d.Subpartitions = append(d.Subpartitions, x.partitionDefinition(true))
			if !c.SkipKind(lexer.Comma) {
				break
			}
		}
		c.ExpectKind(lexer.RParen)
	}
	return d
}

// Package catalog holds the in-memory model of a MySQL server's schema
// objects: schemas and the tables, views, routines, triggers and events they
// own, plus server level tablespaces, log file groups and server links.
package catalog

import (
	"github.com/google/uuid"
)

// Object is implemented by every catalog object.
type Object interface {
	ObjectID() uuid.UUID
	ObjectName() string
	ObjectKind() string
}

// Catalog is the root of the object tree.
type Catalog struct {
	ID               uuid.UUID
	Name             string
	CaseSensitive    bool
	DefaultSchema    *Schema
	DefaultCharset   string
	DefaultCollation string

	Schemata      List[*Schema]
	LogFileGroups List[*LogFileGroup]
	Tablespaces   List[*Tablespace]
	Servers       List[*Server]
}

// New returns an empty catalog using MySQL 8 server defaults.
func New() *Catalog {
	return &Catalog{
		ID:               uuid.New(),
		Name:             "default",
		DefaultCharset:   "utf8mb4",
		DefaultCollation: "utf8mb4_0900_ai_ci",
	}
}

func (c *Catalog) ObjectID() uuid.UUID { return c.ID }
func (c *Catalog) ObjectName() string  { return c.Name }
func (c *Catalog) ObjectKind() string  { return "catalog" }

// FindSchema looks a schema up under the catalog's case setting.
func (c *Catalog) FindSchema(name string) *Schema {
	return c.Schemata.Find(name, c.CaseSensitive)
}

// AddSchema appends s and sets its owner.
func (c *Catalog) AddSchema(s *Schema) {
	s.Owner = c
	c.Schemata.Add(s)
}

// RemoveSchema deletes s, clearing the default schema when it pointed at s.
func (c *Catalog) RemoveSchema(s *Schema) {
	if c.DefaultSchema == s {
		c.DefaultSchema = nil
	}
	c.Schemata.Remove(s)
}

// Schema is a database.
type Schema struct {
	ID               uuid.UUID
	Name             string
	OldName          string
	Comment          string
	DefaultCharset   string
	DefaultCollation string
	Owner            *Catalog

	Tables        List[*Table]
	Views         List[*View]
	Routines      List[*Routine]
	RoutineGroups List[*RoutineGroup]
	Events        List[*Event]
}

// NewSchema returns an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{ID: uuid.New(), Name: name, OldName: name}
}

func (s *Schema) ObjectID() uuid.UUID { return s.ID }
func (s *Schema) ObjectName() string  { return s.Name }
func (s *Schema) ObjectKind() string  { return "schema" }

func (s *Schema) caseSensitive() bool {
	return s.Owner != nil && s.Owner.CaseSensitive
}

// FindTable looks a table up under the catalog's case setting.
func (s *Schema) FindTable(name string) *Table {
	return s.Tables.Find(name, s.caseSensitive())
}

// AddTable appends t and sets its owner.
func (s *Schema) AddTable(t *Table) {
	t.Owner = s
	s.Tables.Add(t)
}

// FindView looks a view up by name, ignoring case.
func (s *Schema) FindView(name string) *View { return s.Views.Find(name, false) }

// AddView appends v and sets its owner.
func (s *Schema) AddView(v *View) {
	v.Owner = s
	s.Views.Add(v)
}

// FindRoutine looks a routine up by name, ignoring case.
func (s *Schema) FindRoutine(name string) *Routine { return s.Routines.Find(name, false) }

// AddRoutine appends r and sets its owner.
func (s *Schema) AddRoutine(r *Routine) {
	r.Owner = s
	s.Routines.Add(r)
}

// FindEvent looks an event up by name, ignoring case.
func (s *Schema) FindEvent(name string) *Event { return s.Events.Find(name, false) }

// AddEvent appends e and sets its owner.
func (s *Schema) AddEvent(e *Event) {
	e.Owner = s
	s.Events.Add(e)
}

// IsEmpty reports whether the schema owns no objects.
func (s *Schema) IsEmpty() bool {
	return s.Tables.Len() == 0 && s.Views.Len() == 0 && s.Routines.Len() == 0 &&
		s.RoutineGroups.Len() == 0 && s.Events.Len() == 0
}

// TableOptions are the CREATE TABLE options besides engine and charset.
type TableOptions struct {
	MaxRows          string
	MinRows          string
	AvgRowLength     string
	Password         string
	NextAutoInc      string
	PackKeys         string
	StatsAutoRecalc  string
	StatsPersistent  string
	StatsSamplePages int
	Checksum         int
	DelayKeyWrite    int
	RowFormat        string
	MergeUnion       string
	MergeInsert      string
	DataDirectory    string
	IndexDirectory   string
	Tablespace       string
	Connection       string
	KeyBlockSize     string
}

// Partitioning describes PARTITION BY and SUBPARTITION BY clauses.
type Partitioning struct {
	Type            string
	Expression      string
	KeyAlgorithm    int
	Count           int
	SubType         string
	SubExpression   string
	SubKeyAlgorithm int
	SubCount        int
	Definitions     []*PartitionDefinition
}

// PartitionDefinition is one PARTITION or SUBPARTITION clause.
type PartitionDefinition struct {
	Name           string
	Value          string
	Comment        string
	Engine         string
	DataDirectory  string
	IndexDirectory string
	Tablespace     string
	NodeGroupID    int
	MaxRows        string
	MinRows        string
	Subpartitions  []*PartitionDefinition
}

// Table is a base table.
type Table struct {
	ID               uuid.UUID
	Name             string
	OldName          string
	Comment          string
	Owner            *Schema
	Engine           string
	DefaultCharset   string
	DefaultCollation string
	IsTemporary      bool
	IsStub           bool
	ModelOnly        bool
	Options          TableOptions
	Partitioning     Partitioning

	Columns     List[*Column]
	Indexes     List[*Index]
	ForeignKeys List[*ForeignKey]
	Triggers    List[*Trigger]
	PrimaryKey  *Index
}

// NewTable returns an empty table.
func NewTable(name string) *Table {
	return &Table{ID: uuid.New(), Name: name, OldName: name}
}

func (t *Table) ObjectID() uuid.UUID { return t.ID }
func (t *Table) ObjectName() string  { return t.Name }
func (t *Table) ObjectKind() string  { return "table" }

// Reset clears everything but the identity and ownership of t.
func (t *Table) Reset() {
	*t = Table{ID: t.ID, Name: t.Name, OldName: t.OldName, Owner: t.Owner, IsTemporary: t.IsTemporary}
}

// FindColumn looks a column up by name, ignoring case.
func (t *Table) FindColumn(name string) *Column { return t.Columns.Find(name, false) }

// AddColumn appends c and sets its owner.
func (t *Table) AddColumn(c *Column) {
	c.Owner = t
	t.Columns.Add(c)
}

// FindIndex looks an index up by name, ignoring case.
func (t *Table) FindIndex(name string) *Index { return t.Indexes.Find(name, false) }

// AddIndex appends idx and sets its owner. A primary index also becomes
// the table's primary key.
func (t *Table) AddIndex(idx *Index) {
	idx.Owner = t
	if idx.IsPrimary {
		t.PrimaryKey = idx
	}
	t.Indexes.Add(idx)
}

// RemoveIndex deletes idx, clearing the primary key when it pointed at idx.
func (t *Table) RemoveIndex(idx *Index) {
	if t.PrimaryKey == idx {
		t.PrimaryKey = nil
	}
	t.Indexes.Remove(idx)
}

// AddForeignKey appends fk and sets its owner.
func (t *Table) AddForeignKey(fk *ForeignKey) {
	fk.Owner = t
	t.ForeignKeys.Add(fk)
}

// FindTrigger looks a trigger up under the catalog's case setting.
func (t *Table) FindTrigger(name string) *Trigger {
	cs := t.Owner != nil && t.Owner.caseSensitive()
	return t.Triggers.Find(name, cs)
}

// AddTrigger appends tr and sets its owner.
func (t *Table) AddTrigger(tr *Trigger) {
	tr.Owner = t
	t.Triggers.Add(tr)
}

// Column is a table column.
type Column struct {
	ID      uuid.UUID
	Name    string
	OldName string
	Comment string
	Owner   *Table

	SimpleType             *SimpleDatatype
	Length                 int
	Precision              int
	Scale                  int
	DatatypeExplicitParams string
	Flags                  []string

	IsNotNull          bool
	DefaultValue       string
	DefaultValueIsNull bool
	AutoIncrement      bool
	CharacterSet       string
	Collation          string

	Generated        bool
	Expression       string
	GeneratedStorage string
}

// NewColumn returns a column without type information.
func NewColumn(name string) *Column {
	return &Column{ID: uuid.New(), Name: name, OldName: name, Length: -1, Precision: -1, Scale: -1}
}

func (c *Column) ObjectID() uuid.UUID { return c.ID }
func (c *Column) ObjectName() string  { return c.Name }
func (c *Column) ObjectKind() string  { return "column" }

// HasFlag reports whether flag (e.g. UNSIGNED) is set.
func (c *Column) HasFlag(flag string) bool {
	for _, f := range c.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag sets flag unless it is already present.
func (c *Column) AddFlag(flag string) {
	if !c.HasFlag(flag) {
		c.Flags = append(c.Flags, flag)
	}
}

// Index kinds as stored in Index.Kind.
const (
	IndexPrimary  = "PRIMARY"
	IndexUnique   = "UNIQUE"
	IndexPlain    = "INDEX"
	IndexFulltext = "FULLTEXT"
	IndexSpatial  = "SPATIAL"
)

// Index is a table index or key.
type Index struct {
	ID        uuid.UUID
	Name      string
	OldName   string
	Comment   string
	Owner     *Table
	Kind      string
	IndexType string
	IsPrimary bool
	Unique    bool

	KeyBlockSize    int
	WithParser      string
	AlgorithmOption string
	LockOption      string

	Columns []*IndexColumn
}

// NewIndex returns an empty index.
func NewIndex(name string) *Index {
	return &Index{ID: uuid.New(), Name: name, OldName: name}
}

func (i *Index) ObjectID() uuid.UUID { return i.ID }
func (i *Index) ObjectName() string  { return i.Name }
func (i *Index) ObjectKind() string  { return "index" }

// AddColumn appends an index column referencing col.
func (i *Index) AddColumn(ic *IndexColumn) {
	ic.Owner = i
	i.Columns = append(i.Columns, ic)
}

// IndexColumn is one key part. Column stays nil until the name is resolved
// against the owning table.
type IndexColumn struct {
	Name       string
	Owner      *Index
	Column     *Column
	Length     int
	Descending bool
}

// ForeignKey is a FOREIGN KEY constraint. The referenced side is resolved
// after the whole batch has been read.
type ForeignKey struct {
	ID                  uuid.UUID
	Name                string
	OldName             string
	Owner               *Table
	Columns             []*Column
	ReferencedTable     *Table
	ReferencedColumns   []*Column
	DeleteRule          string
	UpdateRule          string
	Index               *Index
	Many                bool
	Mandatory           bool
	ReferencedMandatory bool
	ModelOnly           bool
}

// NewForeignKey returns a foreign key with MySQL's default referential
// actions.
func NewForeignKey(name string) *ForeignKey {
	return &ForeignKey{ID: uuid.New(), Name: name, OldName: name, DeleteRule: "NO ACTION", UpdateRule: "NO ACTION", Many: true, Mandatory: true}
}

func (f *ForeignKey) ObjectID() uuid.UUID { return f.ID }
func (f *ForeignKey) ObjectName() string  { return f.Name }
func (f *ForeignKey) ObjectKind() string  { return "foreign key" }

// Trigger is a table trigger.
type Trigger struct {
	ID            uuid.UUID
	Name          string
	OldName       string
	Owner         *Table
	Definer       string
	Timing        string
	Event         string
	Ordering      string
	OtherTrigger  string
	Enabled       bool
	SQLDefinition string
	ModelOnly     bool
}

// NewTrigger returns an enabled trigger.
func NewTrigger(name string) *Trigger {
	return &Trigger{ID: uuid.New(), Name: name, OldName: name, Enabled: true}
}

func (t *Trigger) ObjectID() uuid.UUID { return t.ID }
func (t *Trigger) ObjectName() string  { return t.Name }
func (t *Trigger) ObjectKind() string  { return "trigger" }

// View algorithms.
const (
	ViewAlgorithmUndefined = 0
	ViewAlgorithmMerge     = 1
	ViewAlgorithmTempTable = 2
)

// View is a stored query.
type View struct {
	ID                 uuid.UUID
	Name               string
	OldName            string
	Comment            string
	Owner              *Schema
	Algorithm          int
	Definer            string
	Security           string
	Columns            []string
	WithCheckCondition bool
	SQLDefinition      string
	ModelOnly          bool
}

// NewView returns an empty view.
func NewView(name string) *View {
	return &View{ID: uuid.New(), Name: name, OldName: name}
}

func (v *View) ObjectID() uuid.UUID { return v.ID }
func (v *View) ObjectName() string  { return v.Name }
func (v *View) ObjectKind() string  { return "view" }

// Routine types as stored in Routine.Type.
const (
	RoutineProcedure = "procedure"
	RoutineFunction  = "function"
	RoutineUdf       = "udf"
	RoutineUnknown   = "unknown"
)

// RoutineParam is a procedure or function parameter.
type RoutineParam struct {
	Name     string
	Mode     string
	Datatype string
}

// Routine is a stored procedure, stored function or loadable function.
type Routine struct {
	ID             uuid.UUID
	Name           string
	OldName        string
	Comment        string
	Owner          *Schema
	Type           string
	Definer        string
	Security       string
	Params         []*RoutineParam
	ReturnDatatype string
	Deterministic  bool
	DataAccess     string
	Language       string
	SQLDefinition  string
	ModelOnly      bool
	Sequence       int
}

// NewRoutine returns a routine of unknown type.
func NewRoutine(name string) *Routine {
	return &Routine{ID: uuid.New(), Name: name, OldName: name, Type: RoutineUnknown}
}

func (r *Routine) ObjectID() uuid.UUID { return r.ID }
func (r *Routine) ObjectName() string  { return r.Name }
func (r *Routine) ObjectKind() string  { return "routine" }

// RoutineGroup bundles routines edited together as one script.
type RoutineGroup struct {
	ID       uuid.UUID
	Name     string
	Owner    *Schema
	Routines []*Routine
}

// NewRoutineGroup returns an empty group.
func NewRoutineGroup(name string) *RoutineGroup {
	return &RoutineGroup{ID: uuid.New(), Name: name}
}

func (g *RoutineGroup) ObjectID() uuid.UUID { return g.ID }
func (g *RoutineGroup) ObjectName() string  { return g.Name }
func (g *RoutineGroup) ObjectKind() string  { return "routine group" }

// Event is a scheduled event.
type Event struct {
	ID                   uuid.UUID
	Name                 string
	OldName              string
	Comment              string
	Owner                *Schema
	Definer              string
	At                   string
	UseInterval          bool
	IntervalValue        string
	IntervalUnit         string
	IntervalStart        string
	IntervalEnd          string
	PreserveOnCompletion bool
	Enabled              string
	SQLDefinition        string
	ModelOnly            bool
}

// NewEvent returns an enabled event.
func NewEvent(name string) *Event {
	return &Event{ID: uuid.New(), Name: name, OldName: name, Enabled: "ENABLE"}
}

func (e *Event) ObjectID() uuid.UUID { return e.ID }
func (e *Event) ObjectName() string  { return e.Name }
func (e *Event) ObjectKind() string  { return "event" }

// LogFileGroup is an NDB log file group.
type LogFileGroup struct {
	ID             uuid.UUID
	Name           string
	OldName        string
	Comment        string
	UndoFile       string
	InitialSize    int64
	UndoBufferSize int64
	RedoBufferSize int64
	NodeGroupID    int
	Wait           bool
	Engine         string
	ModelOnly      bool
}

// NewLogFileGroup returns an empty log file group.
func NewLogFileGroup(name string) *LogFileGroup {
	return &LogFileGroup{ID: uuid.New(), Name: name, OldName: name}
}

func (g *LogFileGroup) ObjectID() uuid.UUID { return g.ID }
func (g *LogFileGroup) ObjectName() string  { return g.Name }
func (g *LogFileGroup) ObjectKind() string  { return "logfile group" }

// Tablespace is a general tablespace.
type Tablespace struct {
	ID             uuid.UUID
	Name           string
	OldName        string
	Comment        string
	DataFile       string
	LogFileGroup   *LogFileGroup
	InitialSize    int64
	AutoExtendSize int64
	MaxSize        int64
	ExtentSize     int64
	NodeGroupID    int
	Wait           bool
	Engine         string
	ModelOnly      bool
}

// NewTablespace returns an empty tablespace.
func NewTablespace(name string) *Tablespace {
	return &Tablespace{ID: uuid.New(), Name: name, OldName: name}
}

func (t *Tablespace) ObjectID() uuid.UUID { return t.ID }
func (t *Tablespace) ObjectName() string  { return t.Name }
func (t *Tablespace) ObjectKind() string  { return "tablespace" }

// Server is a FEDERATED server link.
type Server struct {
	ID          uuid.UUID
	Name        string
	OldName     string
	WrapperName string
	Host        string
	Schema      string
	User        string
	Password    string
	Socket      string
	OwnerUser   string
	Port        string
	ModelOnly   bool
}

// NewServer returns an empty server link.
func NewServer(name string) *Server {
	return &Server{ID: uuid.New(), Name: name, OldName: name}
}

func (s *Server) ObjectID() uuid.UUID { return s.ID }
func (s *Server) ObjectName() string  { return s.Name }
func (s *Server) ObjectKind() string  { return "server" }

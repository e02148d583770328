// Package ddl converts MySQL DDL statements into catalog objects. It holds
// one extractor per object kind, the deferred reference resolution pass and
// the batch engine that applies whole scripts to a catalog.
package ddl

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/logger"
)

// Context carries the settings shared by all entry points.
type Context struct {
	// CaseSensitive controls schema, table and trigger name comparison.
	CaseSensitive bool
	Log           *zap.SugaredLogger
	// Stop is polled between statements. Setting it ends a running batch
	// after the current statement. Entry points clear it when they start, so
	// a stopped Context can be used again.
	Stop *atomic.Bool
}

// NewContext returns a context with its own stop flag.
func NewContext(caseSensitive bool, log *zap.SugaredLogger) *Context {
	return &Context{CaseSensitive: caseSensitive, Log: log, Stop: new(atomic.Bool)}
}

func (pc *Context) logger() *zap.SugaredLogger {
	if pc == nil {
		return logger.Nop()
	}
	return logger.OrNop(pc.Log)
}

func (pc *Context) caseSensitive() bool {
	return pc != nil && pc.CaseSensitive
}

func (pc *Context) stopFlag() *atomic.Bool {
	if pc == nil {
		return nil
	}
	return pc.Stop
}

func (pc *Context) resetStop() {
	if f := pc.stopFlag(); f != nil {
		f.Store(false)
	}
}

func (pc *Context) stopped() bool {
	f := pc.stopFlag()
	return f != nil && f.Load()
}

// Options controls a ParseSQLIntoCatalog run.
type Options struct {
	// Schema is the schema unqualified statements apply to until a USE
	// statement changes it. It is created when missing.
	Schema string
	// GenFKNamesWhenEmpty gives unnamed FOREIGN KEY constraints a generated
	// name.
	GenFKNamesWhenEmpty bool
	// CreatedObjects, when set, receives every created or replaced object
	// once, in processing order. Existing entries are kept.
	CreatedObjects *[]catalog.Object
}

// OptionsFromMap builds Options from the keys schema, gen_fk_names_when_empty
// and created_objects. Other keys are ignored.
func OptionsFromMap(m map[string]any) (Options, error) {
	var opts Options
	if v, ok := m["schema"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return opts, errors.Errorf("option schema: expected string, got %T", v)
		}
		opts.Schema = s
	}
	if v, ok := m["gen_fk_names_when_empty"]; ok && v != nil {
		switch b := v.(type) {
		case bool:
			opts.GenFKNamesWhenEmpty = b
		case int:
			opts.GenFKNamesWhenEmpty = b != 0
		case int64:
			opts.GenFKNamesWhenEmpty = b != 0
		default:
			return opts, errors.Errorf("option gen_fk_names_when_empty: expected bool or int, got %T", v)
		}
	}
	if v, ok := m["created_objects"]; ok && v != nil {
		list, ok := v.(*[]catalog.Object)
		if !ok {
			return opts, errors.Errorf("option created_objects: expected *[]catalog.Object, got %T", v)
		}
		opts.CreatedObjects = list
	}
	return opts, nil
}

// createdList appends objects without duplicates.
type createdList struct {
	out  *[]catalog.Object
	seen map[catalog.Object]bool
}

func newCreatedList(out *[]catalog.Object) *createdList {
	if out == nil {
		out = new([]catalog.Object)
	}
	l := &createdList{out: out, seen: make(map[catalog.Object]bool, len(*out))}
	for _, o := range *out {
		l.seen[o] = true
	}
	return l
}

func (l *createdList) add(o catalog.Object) {
	if l.seen[o] {
		return
	}
	l.seen[o] = true
	*l.out = append(*l.out, o)
}

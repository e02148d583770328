package ddl

import (
	"testing"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

func TestOptionsFromMap(t *testing.T) {
	var created []catalog.Object
	opts, err := OptionsFromMap(map[string]any{
		"schema":                  "app",
		"gen_fk_names_when_empty": 1,
		"created_objects":         &created,
		"ignored":                 true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Schema != "app" || !opts.GenFKNamesWhenEmpty || opts.CreatedObjects != &created {
		t.Errorf("options = %+v", opts)
	}

	if opts, err := OptionsFromMap(nil); err != nil || opts != (Options{}) {
		t.Errorf("empty map = %+v, %v", opts, err)
	}

	bad := []map[string]any{
		{"schema": 5},
		{"gen_fk_names_when_empty": "yes"},
		{"created_objects": []catalog.Object{}},
	}
	for _, m := range bad {
		if _, err := OptionsFromMap(m); err == nil {
			t.Errorf("OptionsFromMap(%v) should fail", m)
		}
	}
}

func TestCreatedList(t *testing.T) {
	a := catalog.NewTable("a")
	b := catalog.NewTable("b")
	out := []catalog.Object{a}

	l := newCreatedList(&out)
	l.add(a)
	l.add(b)
	l.add(b)
	if len(out) != 2 || out[0] != a || out[1] != b {
		t.Errorf("created = %v", out)
	}

	// A nil target still accepts additions.
	newCreatedList(nil).add(a)
}

func TestNilContext(t *testing.T) {
	var pc *Context
	if pc.caseSensitive() || pc.stopped() || pc.logger() == nil {
		t.Error("nil context should behave like the defaults")
	}
}

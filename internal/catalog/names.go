package catalog

import "strings"

// NameKey returns the lookup key for name. Schema, table and trigger names
// follow the catalog's case setting; every other object kind is always
// compared case-insensitively and passes caseSensitive=false.
func NameKey(name string, caseSensitive bool) string {
	if caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// SameName compares two object names under the given case policy.
func SameName(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// List is an ordered collection of owned objects with name lookup.
// The zero value is an empty list.
type List[T interface {
	comparable
	Object
}] struct {
	items []T
}

// Items returns the objects in insertion order. The slice must not be
// modified.
func (l *List[T]) Items() []T { return l.items }

// Len returns the number of objects.
func (l *List[T]) Len() int { return len(l.items) }

// At returns the object at position i.
func (l *List[T]) At(i int) T { return l.items[i] }

// Add appends v.
func (l *List[T]) Add(v T) { l.items = append(l.items, v) }

// Find returns the first object named name, or the zero value.
func (l *List[T]) Find(name string, caseSensitive bool) T {
	if i := l.IndexOfName(name, caseSensitive); i >= 0 {
		return l.items[i]
	}
	var zero T
	return zero
}

// IndexOfName returns the position of the first object named name, or -1.
func (l *List[T]) IndexOfName(name string, caseSensitive bool) int {
	for i, v := range l.items {
		if SameName(v.ObjectName(), name, caseSensitive) {
			return i
		}
	}
	return -1
}

// IndexOf returns the position of v, or -1.
func (l *List[T]) IndexOf(v T) int {
	for i, item := range l.items {
		if item == v {
			return i
		}
	}
	return -1
}

// Remove deletes v and reports whether it was present.
func (l *List[T]) Remove(v T) bool {
	i := l.IndexOf(v)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// RemoveAt deletes the object at position i.
func (l *List[T]) RemoveAt(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

// Replace puts v in place of old, keeping the position. When old is not in
// the list v is appended.
func (l *List[T]) Replace(old, v T) {
	if i := l.IndexOf(old); i >= 0 {
		l.items[i] = v
		return
	}
	l.Add(v)
}

// Clear removes all objects.
func (l *List[T]) Clear() { l.items = nil }

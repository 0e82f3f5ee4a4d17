// Package insensitive provides spreadsheet-tolerant key matching. Column
// headers and template placeholders compare equal regardless of case,
// spaces, hyphens and underscores, so "Phone Number", "PHONE_NUMBER" and
// "phonenumber" all address the same column.
package insensitive

import "strings"

// Key reduces a header or placeholder name to its canonical lookup form:
// lowercase with spaces, underscores and hyphens removed.
func Key(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '_', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Keys maps Key over names, preserving order.
func Keys(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Key(n)
	}
	return out
}

// Dict is an insertion-ordered map whose lookups go through Key, so any
// spelling of a column name reaches the same entry.
type Dict struct {
	order  []string
	values map[string]interface{}
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{values: make(map[string]interface{})}
}

// FromKeys builds a Dict mapping each name's canonical key to the original
// spelling, remembering how a header row was actually written.
func FromKeys(names []string) *Dict {
	d := NewDict()
	for _, n := range names {
		d.Set(n, n)
	}
	return d
}

// Set stores value under the canonical form of name. Re-setting an existing
// key overwrites the value but keeps the key's original position.
func (d *Dict) Set(name string, value interface{}) {
	k := Key(name)
	if _, exists := d.values[k]; !exists {
		d.order = append(d.order, k)
	}
	d.values[k] = value
}

// Get returns the value stored under any spelling of name.
func (d *Dict) Get(name string) (interface{}, bool) {
	v, ok := d.values[Key(name)]
	return v, ok
}

// Contains reports whether any spelling of name has been set.
func (d *Dict) Contains(name string) bool {
	_, ok := d.values[Key(name)]
	return ok
}

// Len returns the number of distinct canonical keys.
func (d *Dict) Len() int {
	return len(d.order)
}

// Keys returns the canonical keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Each calls fn for every entry in insertion order.
func (d *Dict) Each(fn func(key string, value interface{})) {
	for _, k := range d.order {
		fn(k, d.values[k])
	}
}

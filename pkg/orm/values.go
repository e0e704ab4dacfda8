package orm

import "sort"

// Record is one row as returned to callers, keyed by column or alias
type Record map[string]interface{}

// Data is an ordered write payload. Column order in INSERT and UPDATE
// statements follows the order of Set calls.
type Data struct {
	keys   []string
	values map[string]interface{}
}

// NewData creates an empty payload
func NewData() *Data {
	return &Data{values: make(map[string]interface{})}
}

// DataFrom copies a map into a payload with keys sorted, since Go maps
// carry no insertion order.
func DataFrom(m map[string]interface{}) *Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := NewData()
	for _, k := range keys {
		d.Set(k, m[k])
	}
	return d
}

// Set assigns a column; re-setting a column keeps its original position.
// The zero Data is ready to use.
func (d *Data) Set(column string, value interface{}) *Data {
	if d.values == nil {
		d.values = make(map[string]interface{})
	}
	if _, exists := d.values[column]; !exists {
		d.keys = append(d.keys, column)
	}
	d.values[column] = value
	return d
}

// Clone returns an independent copy of the payload. Values are copied
// shallowly.
func (d *Data) Clone() *Data {
	out := NewData()
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		out.Set(k, d.values[k])
	}
	return out
}

// Get returns the value for column
func (d *Data) Get(column string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[column]
	return v, ok
}

// Keys returns the columns in insertion order
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of columns set
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Record returns a copy of the payload as a Record
func (d *Data) Record() Record {
	rec := make(Record, d.Len())
	if d == nil {
		return rec
	}
	for _, k := range d.keys {
		rec[k] = d.values[k]
	}
	return rec
}

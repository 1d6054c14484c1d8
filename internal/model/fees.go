package model

import (
	"bytes"
	"encoding/json"
)

// DefaultFeeNames seed every event's active fee-name set.
var DefaultFeeNames = []string{
	"Einzel Endpreis",
	"Anzahl Tickets",
	"Grundpreis",
	"VVK-Gebühr",
	"Sys-Geb.",
}

// FeeNames is an insertion-ordered set of fee column names.
// The zero value is an empty set ready for use.
type FeeNames struct {
	names []string
	index map[string]struct{}
}

// NewFeeNames returns a set holding names in order, duplicates dropped.
func NewFeeNames(names ...string) *FeeNames {
	f := &FeeNames{}
	for _, n := range names {
		f.Add(n)
	}
	return f
}

// Add inserts name if absent. Reports whether the set changed.
func (f *FeeNames) Add(name string) bool {
	if f.index == nil {
		f.index = make(map[string]struct{})
	}
	if _, ok := f.index[name]; ok {
		return false
	}
	f.index[name] = struct{}{}
	f.names = append(f.names, name)
	return true
}

func (f *FeeNames) Contains(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *FeeNames) Len() int { return len(f.names) }

// Names returns a copy of the names in insertion order.
func (f *FeeNames) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// FeeValues maps fee names to values, keeping the order the keys were set in.
type FeeValues struct {
	keys   []string
	values map[string]float64
}

// Set assigns v to name, appending name to the key order on first use.
func (fv *FeeValues) Set(name string, v float64) {
	if fv.values == nil {
		fv.values = make(map[string]float64)
	}
	if _, ok := fv.values[name]; !ok {
		fv.keys = append(fv.keys, name)
	}
	fv.values[name] = v
}

func (fv FeeValues) Get(name string) (float64, bool) {
	v, ok := fv.values[name]
	return v, ok
}

// Keys returns the fee names in the order they were set.
func (fv FeeValues) Keys() []string {
	out := make([]string, len(fv.keys))
	copy(out, fv.keys)
	return out
}

func (fv FeeValues) Len() int { return len(fv.keys) }

// MarshalJSON encodes the values as an object with keys in set order.
func (fv FeeValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range fv.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(fv.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

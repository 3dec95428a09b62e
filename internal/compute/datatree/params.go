package datatree

import (
	"fmt"
	"sort"
)

// Param is one named input.  A scalar param holds exactly one value; a list
// param holds any number of values in order.
type Param struct {
	Name   string
	Values []Value
	IsList bool
}

// Scalar builds a single-valued param.
func Scalar(name string, v Value) Param {
	return Param{Name: name, Values: []Value{v}}
}

// List builds a list-valued param.
func List(name string, values ...Value) Param {
	vs := make([]Value, len(values))
	copy(vs, values)
	return Param{Name: name, Values: vs, IsList: true}
}

// Params is an ordered parameter mapping.  Names are unique.
type Params struct {
	entries []Param
	index   map[string]int
}

// NewParams builds a mapping from params in order.  A repeated name replaces
// the earlier entry in place.
func NewParams(params ...Param) *Params {
	p := &Params{}
	for _, e := range params {
		p.Set(e)
	}
	return p
}

// Set inserts e or replaces the entry with the same name, keeping its position.
func (p *Params) Set(e Param) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[e.Name]; ok {
		p.entries[i] = e
		return
	}
	p.index[e.Name] = len(p.entries)
	p.entries = append(p.entries, e)
}

// SetScalar is shorthand for Set(Scalar(name, v)).
func (p *Params) SetScalar(name string, v Value) { p.Set(Scalar(name, v)) }

// SetList is shorthand for Set(List(name, values...)).
func (p *Params) SetList(name string, values ...Value) { p.Set(List(name, values...)) }

// Get returns the entry stored under name.
func (p *Params) Get(name string) (Param, bool) {
	if p == nil || p.index == nil {
		return Param{}, false
	}
	i, ok := p.index[name]
	if !ok {
		return Param{}, false
	}
	return p.entries[i], true
}

// Len reports the number of entries.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Entries returns the entries in insertion order.
func (p *Params) Entries() []Param {
	if p == nil {
		return nil
	}
	out := make([]Param, len(p.entries))
	copy(out, p.entries)
	return out
}

// ParamsFromMap converts decoded JSON into Params.  Keys are sorted so the
// resulting order is deterministic; []interface{} values become list params.
func ParamsFromMap(m map[string]interface{}) (*Params, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &Params{}
	for _, k := range keys {
		switch raw := m[k].(type) {
		case []interface{}:
			vs := make([]Value, 0, len(raw))
			for i, item := range raw {
				v, err := ValueOf(item)
				if err != nil {
					return nil, fmt.Errorf("param %q[%d]: %w", k, i, err)
				}
				vs = append(vs, v)
			}
			p.SetList(k, vs...)
		default:
			v, err := ValueOf(raw)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", k, err)
			}
			p.SetScalar(k, v)
		}
	}
	return p, nil
}

//Personal.AI order the ending

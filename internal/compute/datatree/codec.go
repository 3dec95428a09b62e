package datatree

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Encode turns every entry of params into a Tree with a single branch at {0}.
// Entry order is preserved.  An empty or nil mapping yields an empty slice.
func Encode(params *Params) []Tree {
	entries := params.Entries()
	trees := make([]Tree, 0, len(entries))
	for _, e := range entries {
		t := NewTree(e.Name)
		t.Append(RootPath, e.Values...)
		trees = append(trees, *t)
	}
	return trees
}

// EncodeMap is Encode over loosely-typed JSON input, keys sorted.
func EncodeMap(m map[string]interface{}) ([]Tree, error) {
	p, err := ParamsFromMap(m)
	if err != nil {
		return nil, err
	}
	return Encode(p), nil
}

// Result is the body returned by a Grasshopper evaluation.
type Result struct {
	Values   []Tree          `json:"values"`
	Errors   []string        `json:"errors,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Pointer  string          `json:"pointer,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// DecodeResult parses a raw evaluation body.
func DecodeResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("datatree: decode evaluation result: %w", err)
	}
	r.Raw = append(json.RawMessage(nil), data...)
	return &r, nil
}

// Parsed maps output names to the flattened data of all their branches.
// Names keep the order of their first appearance.
type Parsed struct {
	names []string
	data  map[string][]Value
}

// ParseData flattens r into name -> values.  Every output name gets a list,
// even an empty one, and repeated names append to the same list.
func ParseData(r *Result) *Parsed {
	p := &Parsed{data: make(map[string][]Value)}
	if r == nil {
		return p
	}
	for _, out := range r.Values {
		if _, seen := p.data[out.ParamName]; !seen {
			p.names = append(p.names, out.ParamName)
			p.data[out.ParamName] = []Value{}
		}
		for _, b := range out.Branches {
			for _, it := range b.Items {
				p.data[out.ParamName] = append(p.data[out.ParamName], it.Data)
			}
		}
	}
	return p
}

// Names returns output names in first-appearance order.
func (p *Parsed) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Has reports whether name appeared as an output at all.
func (p *Parsed) Has(name string) bool {
	_, ok := p.data[name]
	return ok
}

// Get returns the values of name.  Matching is exact and case-sensitive.
func (p *Parsed) Get(name string) ([]Value, bool) {
	v, ok := p.data[name]
	return v, ok
}

// First returns the first value of name.
func (p *Parsed) First(name string) (Value, bool) {
	v := p.data[name]
	if len(v) == 0 {
		return Value{}, false
	}
	return v[0], true
}

// Strings returns the text of every value of name.
func (p *Parsed) Strings(name string) []string {
	vs := p.data[name]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Text()
	}
	return out
}

// Float interprets the first value of name as a number.  String payloads are
// parsed, which covers engines that JSON-encode numbers inside strings.
func (p *Parsed) Float(name string) (float64, bool) {
	v, ok := p.First(name)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Float converts a number or a numeric string payload to float64.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(unquote(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// unquote strips one level of JSON string encoding if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var out string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	return s
}

// Map returns a copy of the parsed data as a plain map.
func (p *Parsed) Map() map[string][]Value {
	out := make(map[string][]Value, len(p.data))
	for k, v := range p.data {
		cp := make([]Value, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// MarshalJSON writes the mapping as a JSON object in name order.
func (p *Parsed) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range p.names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		vals, err := json.Marshal(p.data[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, vals...)
	}
	return append(buf, '}'), nil
}

//Personal.AI order the ending

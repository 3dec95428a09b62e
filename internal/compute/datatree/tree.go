package datatree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a branch inside a Tree, e.g. {0} or {0;2}.
type Path []int

// RootPath is the single path every encoded parameter uses.
var RootPath = Path{0}

// String renders the path in Grasshopper notation.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return "{" + strings.Join(parts, ";") + "}"
}

// ParsePath parses "{0;1}" into Path{0, 1}.  The braces are optional.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return Path{}, nil
	}
	fields := strings.Split(s, ";")
	p := make(Path, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("datatree: invalid path %q: %w", s, err)
		}
		p = append(p, n)
	}
	return p, nil
}

// Item is one entry of a branch.  Type is the Rhino type hint and may be
// empty on results.
type Item struct {
	Type string `json:"type,omitempty"`
	Data Value  `json:"data"`
}

// Branch is an ordered list of items stored under a path.  Key keeps the
// literal path key as received so unparseable keys survive a round trip.
type Branch struct {
	Key   string
	Items []Item
}

// Values returns the data payloads of the branch in order.
func (b Branch) Values() []Value {
	out := make([]Value, len(b.Items))
	for i, it := range b.Items {
		out[i] = it.Data
	}
	return out
}

// Tree is a named data tree.  Branches keep the order in which they were
// appended or decoded.
type Tree struct {
	ParamName string
	Branches  []Branch
}

// NewTree returns an empty tree for the given parameter name.
func NewTree(name string) *Tree {
	return &Tree{ParamName: name}
}

// Append adds a branch at path holding values in order.
func (t *Tree) Append(path Path, values ...Value) {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = Item{Type: v.TypeHint(), Data: v}
	}
	t.Branches = append(t.Branches, Branch{Key: path.String(), Items: items})
}

// Branch returns the branch stored under path.
func (t *Tree) Branch(path Path) (Branch, bool) {
	key := path.String()
	for _, b := range t.Branches {
		if b.Key == key {
			return b, true
		}
	}
	return Branch{}, false
}

type wireTree struct {
	ParamName string    `json:"ParamName"`
	InnerTree innerTree `json:"InnerTree"`
}

// innerTree marshals as a JSON object whose key order follows the slice.
type innerTree []Branch

func (it innerTree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		items := b.Items
		if items == nil {
			items = []Item{}
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("datatree: encode branch %s: %w", b.Key, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (it *innerTree) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("datatree: decode InnerTree: %w", err)
	}
	if tok == nil {
		*it = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("datatree: InnerTree must be an object")
	}
	var branches innerTree
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("datatree: decode InnerTree key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("datatree: InnerTree key is not a string")
		}
		var items []Item
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("datatree: decode branch %s: %w", key, err)
		}
		branches = append(branches, Branch{Key: key, Items: items})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("datatree: decode InnerTree: %w", err)
	}
	*it = branches
	return nil
}

// MarshalJSON writes the Rhino Compute wire form of the tree.
func (t Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTree{ParamName: t.ParamName, InnerTree: innerTree(t.Branches)})
}

// UnmarshalJSON reads the Rhino Compute wire form, preserving branch order.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var w wireTree
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.ParamName = w.ParamName
	t.Branches = []Branch(w.InnerTree)
	return nil
}

//Personal.AI order the ending

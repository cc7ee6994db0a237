package changefeed

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Filter scopes a subscription to a subset of a table's rows. A nil Filter
// matches every row. Composition is deliberately small: column equality, AND
// over equalities, and OR over two such groups, which is exactly enough to
// scope a direct-message channel to one conversation pair:
//
//	Or(And(Eq("sender_id", a), Eq("recipient_id", b)),
//	   And(Eq("sender_id", b), Eq("recipient_id", a)))
type Filter struct {
	eqs    []colEq
	groups []*Filter // OR groups; when set, eqs is empty
}

type colEq struct {
	column string
	value  string
}

// Eq matches rows whose column equals value. Numeric values compare by their
// canonical decimal form.
func Eq(column string, value any) *Filter {
	return &Filter{eqs: []colEq{{column: column, value: canonical(value)}}}
}

// And matches rows satisfying every equality filter.
func And(filters ...*Filter) *Filter {
	f := &Filter{}
	for _, in := range filters {
		f.eqs = append(f.eqs, in.eqs...)
	}
	return f
}

// Or matches rows satisfying either group.
func Or(a, b *Filter) *Filter {
	return &Filter{groups: []*Filter{a, b}}
}

// Matches evaluates the filter against an event's row. Unparseable rows never
// match; a nil filter always matches.
func (f *Filter) Matches(ev Event) bool {
	if f == nil {
		return true
	}
	row := ev.Row()
	if len(row) == 0 {
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return false
	}
	return f.matchFields(fields)
}

func (f *Filter) matchFields(fields map[string]json.RawMessage) bool {
	if len(f.groups) > 0 {
		for _, g := range f.groups {
			if g.matchFields(fields) {
				return true
			}
		}
		return false
	}
	for _, eq := range f.eqs {
		raw, ok := fields[eq.column]
		if !ok {
			return false
		}
		if canonicalRaw(raw) != eq.value {
			return false
		}
	}
	return true
}

// canonical normalizes a filter value for comparison.
func canonical(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// canonicalRaw normalizes a raw JSON field value for comparison.
func canonicalRaw(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return string(raw)
}

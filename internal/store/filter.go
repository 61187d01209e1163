package store

import (
	"fmt"
	"strings"
)

// FilterOp identifies the kind of a Filter.
type FilterOp int

const (
	// OpEq matches records whose field equals the single value.
	OpEq FilterOp = iota
	// OpIn matches records whose field equals any of the values.
	OpIn
	// OpIsSet matches records whose field is present, non-null and non-empty.
	OpIsSet
	// OpNotSet matches records whose field is missing, null or empty.
	OpNotSet
)

func (op FilterOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpIn:
		return "in"
	case OpIsSet:
		return "is set"
	case OpNotSet:
		return "not set"
	default:
		return fmt.Sprintf("FilterOp(%d)", int(op))
	}
}

// Filter is a single condition on one field.
// Build filters with Eq, In, InStrings, IsSet and NotSet.
type Filter struct {
	Op     FilterOp
	Field  string
	Values []any
}

// Eq matches field == value.
func Eq(field string, value any) Filter {
	return Filter{Op: OpEq, Field: field, Values: []any{value}}
}

// In matches field against any of values. An empty value list matches nothing.
func In(field string, values ...any) Filter {
	return Filter{Op: OpIn, Field: field, Values: values}
}

// InStrings is In for a string slice.
func InStrings(field string, values []string) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return In(field, vs...)
}

// IsSet matches records where field has a non-empty value.
func IsSet(field string) Filter {
	return Filter{Op: OpIsSet, Field: field}
}

// NotSet matches records where field is missing or empty.
func NotSet(field string) Filter {
	return Filter{Op: OpNotSet, Field: field}
}

// Match reports whether r satisfies the filter.
func (f Filter) Match(r Record) bool {
	switch f.Op {
	case OpEq:
		if len(f.Values) != 1 {
			return false
		}
		return r.String(f.Field) == stringify(f.Values[0])
	case OpIn:
		got := r.String(f.Field)
		for _, v := range f.Values {
			if got == stringify(v) {
				return true
			}
		}
		return false
	case OpIsSet:
		return r.String(f.Field) != ""
	case OpNotSet:
		return r.String(f.Field) == ""
	default:
		return false
	}
}

// String renders the filter for logs.
func (f Filter) String() string {
	switch f.Op {
	case OpIsSet, OpNotSet:
		return fmt.Sprintf("%s %s", f.Field, f.Op)
	case OpIn:
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = stringify(v)
		}
		return fmt.Sprintf("%s in [%s]", f.Field, strings.Join(parts, ", "))
	default:
		vals := make([]string, len(f.Values))
		for i, v := range f.Values {
			vals[i] = stringify(v)
		}
		return fmt.Sprintf("%s %s %s", f.Field, f.Op, strings.Join(vals, ","))
	}
}

// MatchAll reports whether r satisfies every filter.
func MatchAll(r Record, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

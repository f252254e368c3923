// Package querymatch compiles query filters into in-process predicates.
//
// Compilation happens in two steps. Lower rewrites the operator vocabulary
// into a small structural form (equality, membership, ordering and regular
// expression tests joined by AND/OR), and Structural evaluates that form
// against a record. The in-process backend and anything else holding records
// in memory share this one matcher.
package querymatch

import (
	"regexp"

	"github.com/redbco/wings/pkg/record"
)

// Test is a structural test applied to one field.
type Test int

const (
	TestEq Test = iota
	TestNe
	TestIn
	TestNin
	TestLt
	TestLte
	TestGt
	TestGte
	TestRegex
	TestNotRegex
	// TestTrue matches every record.
	TestTrue
)

// Node is one node of the structural form. Exactly one of And, Or or Field
// is meaningful: And and Or hold children, Field selects a field test.
type Node struct {
	And []Node
	Or  []Node

	Field  string
	Test   Test
	Value  record.Value
	Values []record.Value
	Regex  *regexp.Regexp
}

// Predicate decides whether a record matches.
type Predicate interface {
	Match(r *record.Record) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(r *record.Record) bool

func (f PredicateFunc) Match(r *record.Record) bool { return f(r) }

// Structural is the generic matcher over the structural form.
type Structural struct {
	Root Node
}

// Match evaluates the structural form against r. A missing field reads as null.
func (s *Structural) Match(r *record.Record) bool {
	return eval(s.Root, r)
}

func eval(n Node, r *record.Record) bool {
	switch {
	case n.And != nil:
		for _, c := range n.And {
			if !eval(c, r) {
				return false
			}
		}
		return true
	case n.Or != nil:
		for _, c := range n.Or {
			if eval(c, r) {
				return true
			}
		}
		return false
	}
	if n.Test == TestTrue {
		return true
	}
	return test(n, r.Value(n.Field))
}

func test(n Node, v record.Value) bool {
	switch n.Test {
	case TestEq:
		return record.Equal(v, n.Value)
	case TestNe:
		return !record.Equal(v, n.Value)
	case TestIn:
		return contains(n.Values, v)
	case TestNin:
		return !contains(n.Values, v)
	case TestLt:
		return record.Comparable(v, n.Value) && record.Compare(v, n.Value) < 0
	case TestLte:
		return record.Comparable(v, n.Value) && record.Compare(v, n.Value) <= 0
	case TestGt:
		return record.Comparable(v, n.Value) && record.Compare(v, n.Value) > 0
	case TestGte:
		return record.Comparable(v, n.Value) && record.Compare(v, n.Value) >= 0
	case TestRegex:
		return matches(n.Regex, v)
	case TestNotRegex:
		return !matches(n.Regex, v)
	}
	return false
}

func contains(set []record.Value, v record.Value) bool {
	for _, s := range set {
		if record.Equal(s, v) {
			return true
		}
	}
	return false
}

func matches(re *regexp.Regexp, v record.Value) bool {
	s, ok := v.(record.String)
	return ok && re.MatchString(string(s))
}

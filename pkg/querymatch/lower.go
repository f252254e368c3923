package querymatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Compiler lowers query filters to in-process predicates.
type Compiler struct {
	// Strict rejects unknown operators with query.ErrUnknownOperator.
	// When false they are dropped.
	Strict bool
}

// Compile lowers f and wraps the result in a Structural matcher.
func (c Compiler) Compile(f *query.Filter) (Predicate, error) {
	root, err := c.Lower(f)
	if err != nil {
		return nil, err
	}
	return &Structural{Root: root}, nil
}

// Lower rewrites f into the structural form.
func (c Compiler) Lower(f *query.Filter) (Node, error) {
	if err := f.Validate(c.Strict); err != nil {
		return Node{}, err
	}
	return c.conjunction(f)
}

func (c Compiler) conjunction(f *query.Filter) (Node, error) {
	and := []Node{}
	if f == nil {
		return Node{And: and}, nil
	}
	for _, e := range f.Entries {
		switch x := e.(type) {
		case *query.Field:
			for _, cl := range x.Clauses {
				if !cl.Op.Known() {
					continue
				}
				n, err := lowerClause(x.Name, cl)
				if err != nil {
					return Node{}, err
				}
				and = append(and, n)
			}
		case *query.Logical:
			children := make([]Node, 0, len(x.Children))
			for _, child := range x.Children {
				n, err := c.conjunction(child)
				if err != nil {
					return Node{}, err
				}
				children = append(children, n)
			}
			if x.Op == query.Or {
				and = append(and, Node{Or: children})
			} else {
				and = append(and, Node{And: children})
			}
		case *query.Unrecognized:
		default:
			return Node{}, fmt.Errorf("%w: unsupported filter entry %T", query.ErrInvalid, e)
		}
	}
	return Node{And: and}, nil
}

func lowerClause(field string, cl query.Clause) (Node, error) {
	n := Node{Field: field, Value: cl.Value, Values: cl.Values}
	switch cl.Op {
	case query.OpEq:
		n.Test = TestEq
	case query.OpNe:
		n.Test = TestNe
	case query.OpIn:
		n.Test = TestIn
	case query.OpNin:
		n.Test = TestNin
	case query.OpLt:
		n.Test = TestLt
	case query.OpLte:
		n.Test = TestLte
	case query.OpGt:
		n.Test = TestGt
	case query.OpGte:
		n.Test = TestGte
	case query.OpIsNull:
		n.Value = record.Null{}
		n.Test = TestNe
		if cl.Value == record.Bool(true) {
			n.Test = TestEq
		}
	case query.OpLike, query.OpNotLike, query.OpILike:
		re, err := LikePattern(string(cl.Value.(record.String)), cl.Op == query.OpILike)
		if err != nil {
			return Node{}, fmt.Errorf("%w: field %q: %v", query.ErrInvalid, field, err)
		}
		n.Regex = re
		n.Test = TestRegex
		if cl.Op == query.OpNotLike {
			n.Test = TestNotRegex
		}
	default:
		return Node{}, fmt.Errorf("%w: %s", query.ErrUnknownOperator, cl.Op)
	}
	return n, nil
}

// LikePattern converts a SQL LIKE pattern into an anchored regular
// expression: % matches any run, _ matches one character and a backslash
// escapes the next character.
func LikePattern(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	flags := "(?s)"
	if caseInsensitive {
		flags = "(?si)"
	}
	return regexp.Compile(flags + LikeSource(pattern))
}

// LikeSource returns the anchored regular expression for a LIKE pattern
// without flags, for engines that take options separately.
func LikeSource(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")

	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		sb.WriteString(regexp.QuoteMeta(`\`))
	}
	sb.WriteString("$")
	return sb.String()
}

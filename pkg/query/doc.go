// Package query defines the backend-agnostic query language shared by every
// storage backend: a filter tree plus the $select, $sort, $limit and $skip
// filters.
//
// # Wire shape
//
// Remote callers send a JSON object. Plain keys are fields; a scalar value is
// implicit equality (null tests IS NULL) and an object value is an operator
// map. $or and $and take a non-empty list of nested filters:
//
//	{
//	  "age":   {"$gte": 18, "$lt": 65},
//	  "email": {"$ilike": "%@example.com"},
//	  "$or":   [{"role": "admin"}, {"role": "owner"}],
//	  "$sort": {"name": 1},
//	  "$limit": 10
//	}
//
// ParseJSON keeps key order, which decides clause order in compiled SQL and
// the precedence of $sort keys. ParseMap accepts values already decoded into
// Go maps.
//
// # Building queries in Go
//
//	params := query.New(query.Where(
//	    query.Cond("age", query.Gte(18)),
//	    query.AnyOf(
//	        query.Where(query.Eq("role", "admin")),
//	        query.Where(query.Eq("role", "owner")),
//	    ),
//	)).WithSort("name", query.Ascending).WithLimit(10)
//
// # Unknown operators
//
// Operators outside the vocabulary are preserved by the parser. Each compiler
// carries a Strict flag deciding whether they are dropped or rejected with
// ErrUnknownOperator.
package query

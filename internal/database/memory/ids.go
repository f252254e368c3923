package memory

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/redbco/wings/pkg/record"
)

// IDGenerator produces ids for records inserted without one.
type IDGenerator interface {
	Next() record.Value
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() record.Value

func (f IDGeneratorFunc) Next() record.Value { return f() }

// Sequence returns a generator of consecutive integer ids starting at 0.
func Sequence() IDGenerator {
	var n atomic.Int64
	return IDGeneratorFunc(func() record.Value {
		return record.Int(n.Add(1) - 1)
	})
}

// UUIDs returns a generator of random version 4 UUID strings.
func UUIDs() IDGenerator {
	return IDGeneratorFunc(func() record.Value {
		return record.String(uuid.NewString())
	})
}

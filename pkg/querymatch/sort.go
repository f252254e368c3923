package querymatch

import (
	"sort"

	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Comparator orders two records; it returns a negative number when a sorts
// before b, zero when they tie and a positive number otherwise.
type Comparator interface {
	Compare(a, b *record.Record) int
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(a, b *record.Record) int

func (f ComparatorFunc) Compare(a, b *record.Record) int { return f(a, b) }

// Sorter builds a comparator for $sort keys. Missing fields sort as null,
// which comes before every other value in ascending order.
func Sorter(keys []query.Sort) Comparator {
	keys = append([]query.Sort(nil), keys...)
	return ComparatorFunc(func(a, b *record.Record) int {
		for _, k := range keys {
			c := record.Compare(a.Value(k.Field), b.Value(k.Field))
			if c == 0 {
				continue
			}
			if k.Direction == query.Descending {
				return -c
			}
			return c
		}
		return 0
	})
}

// SortRecords sorts records in place with a stable sort.
func SortRecords(records []*record.Record, cmp Comparator) {
	if cmp == nil {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		return cmp.Compare(records[i], records[j]) < 0
	})
}

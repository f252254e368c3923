package query

// Direction is a sort direction.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// Params is a parsed query: the filter plus $select, $sort, $limit and $skip.
type Params struct {
	Filter *Filter
	Select []string
	Sort   []Sort
	// Limit is nil when no $limit was given.
	Limit *int
	Skip  int
}

// New returns params with the given filter.
func New(filter *Filter) *Params {
	return &Params{Filter: filter}
}

// WithLimit sets $limit and returns p.
func (p *Params) WithLimit(n int) *Params {
	p.Limit = &n
	return p
}

// WithSkip sets $skip and returns p.
func (p *Params) WithSkip(n int) *Params {
	p.Skip = n
	return p
}

// WithSelect sets $select and returns p.
func (p *Params) WithSelect(fields ...string) *Params {
	p.Select = fields
	return p
}

// WithSort appends a sort key and returns p.
func (p *Params) WithSort(field string, dir Direction) *Params {
	p.Sort = append(p.Sort, Sort{Field: field, Direction: dir})
	return p
}

// FilterOnly returns params carrying just the filter of p.
func (p *Params) FilterOnly() *Params {
	if p == nil {
		return &Params{}
	}
	return &Params{Filter: p.Filter}
}

// Clone returns a shallow copy safe to modify at the top level.
func (p *Params) Clone() *Params {
	if p == nil {
		return &Params{}
	}
	out := *p
	out.Select = append([]string(nil), p.Select...)
	out.Sort = append([]Sort(nil), p.Sort...)
	if p.Limit != nil {
		n := *p.Limit
		out.Limit = &n
	}
	return &out
}

// Selection returns the projection with idField added when a $select is
// present. It returns nil when every field is selected.
func (p *Params) Selection(idField string) []string {
	if p == nil || p.Select == nil {
		return nil
	}
	out := make([]string, 0, len(p.Select)+1)
	seen := make(map[string]bool, len(p.Select)+1)
	out = append(out, idField)
	seen[idField] = true
	for _, f := range p.Select {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

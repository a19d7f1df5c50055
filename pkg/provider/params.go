package provider

type Filter struct {
	Column string
	Value  any
}

// Embed asks for the rows of Relation whose ForeignKey references the
// selected record to be nested under the relation name.
type Embed struct {
	Relation   string
	ForeignKey string
}

type Order struct {
	Column     string
	Descending bool
}

// Request describes the rows a provider call applies to.
type Request struct {
	Columns []string
	Filters []Filter
	Embeds  []Embed
	Order   []Order
	Limit   int
	Offset  int
	// Single requires the call to match exactly one row.
	Single bool
	// IDColumn names the column that identifies rows of the collection.
	// Providers use it to assign ids and to join embedded relations.
	IDColumn string
}

type RequestDecoratorFunc func(*Request)

func NewRequest(decorators ...RequestDecoratorFunc) *Request {
	req := &Request{}
	for _, decorate := range decorators {
		decorate(req)
	}
	return req
}

func Columns(columns ...string) RequestDecoratorFunc {
	return func(r *Request) {
		r.Columns = append(r.Columns, columns...)
	}
}

func Eq(column string, value any) RequestDecoratorFunc {
	return func(r *Request) {
		r.Filters = append(r.Filters, Filter{Column: column, Value: value})
	}
}

func Embedded(relation, foreignKey string) RequestDecoratorFunc {
	return func(r *Request) {
		r.Embeds = append(r.Embeds, Embed{Relation: relation, ForeignKey: foreignKey})
	}
}

func Limit(count int) RequestDecoratorFunc {
	return func(r *Request) {
		r.Limit = count
	}
}

func Offset(offset int) RequestDecoratorFunc {
	return func(r *Request) {
		r.Offset = offset
	}
}

func OrderBy(column string) RequestDecoratorFunc {
	return func(r *Request) {
		r.Order = append(r.Order, Order{Column: column})
	}
}

func OrderByDescending(column string) RequestDecoratorFunc {
	return func(r *Request) {
		r.Order = append(r.Order, Order{Column: column, Descending: true})
	}
}

func Single() RequestDecoratorFunc {
	return func(r *Request) {
		r.Single = true
	}
}

func IDColumn(column string) RequestDecoratorFunc {
	return func(r *Request) {
		r.IDColumn = column
	}
}

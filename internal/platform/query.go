package platform

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// QueryKind identifies a list query.
type QueryKind string

const (
	QueryEqual     QueryKind = "equal"
	QueryOrderAsc  QueryKind = "orderAsc"
	QueryOrderDesc QueryKind = "orderDesc"
	QueryLimit     QueryKind = "limit"
)

// Query filters, orders or limits a ListDocuments call.
type Query struct {
	Kind   QueryKind
	Field  string
	Values []string
	Limit  int
}

var fieldPattern = regexp.MustCompile(`^\$?[A-Za-z_][A-Za-z0-9_]*$`)

// Equal matches documents whose field equals any of values.
func Equal(field string, values ...string) Query {
	return Query{Kind: QueryEqual, Field: field, Values: values}
}

// OrderAsc sorts by field, smallest first.
func OrderAsc(field string) Query {
	return Query{Kind: QueryOrderAsc, Field: field}
}

// OrderDesc sorts by field, largest first.
func OrderDesc(field string) Query {
	return Query{Kind: QueryOrderDesc, Field: field}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{Kind: QueryLimit, Limit: n}
}

// Validate rejects unknown kinds and field names that are not plain identifiers.
func (q Query) Validate() error {
	switch q.Kind {
	case QueryEqual, QueryOrderAsc, QueryOrderDesc:
		if !fieldPattern.MatchString(q.Field) {
			return fmt.Errorf("platform: invalid query field %q", q.Field)
		}
	case QueryLimit:
		if q.Limit < 0 {
			return fmt.Errorf("platform: invalid limit %d", q.Limit)
		}
	default:
		return fmt.Errorf("platform: unknown query kind %q", q.Kind)
	}
	return nil
}

// Apply evaluates queries against docs in memory, for adapters whose backend
// cannot filter or sort on arbitrary attributes.
func Apply(docs []*Document, queries []Query) (*DocumentList, error) {
	limit := -1
	var orders []Query
	matched := make([]*Document, 0, len(docs))
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	for _, doc := range docs {
		if matchesAll(doc, queries) {
			matched = append(matched, doc)
		}
	}
	for _, q := range queries {
		switch q.Kind {
		case QueryOrderAsc, QueryOrderDesc:
			orders = append(orders, q)
		case QueryLimit:
			limit = q.Limit
		}
	}
	if len(orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range orders {
				a, _ := matched[i].Attr(o.Field)
				b, _ := matched[j].Attr(o.Field)
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if o.Kind == QueryOrderDesc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	total := len(matched)
	if limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return &DocumentList{Total: total, Documents: matched}, nil
}

func matchesAll(doc *Document, queries []Query) bool {
	for _, q := range queries {
		if q.Kind != QueryEqual {
			continue
		}
		v, ok := doc.Attr(q.Field)
		if !ok {
			return false
		}
		got := stringValue(v)
		found := false
		for _, want := range q.Values {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	sa, sb := stringValue(a), stringValue(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

package backend

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Filter is a single column predicate in the REST filter syntax
// (column=op.value).
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq matches rows where column equals value.
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// Lt matches rows where column is strictly less than value.
func Lt(column, value string) Filter {
	return Filter{Column: column, Op: "lt", Value: value}
}

// Before matches rows whose timestamp column is strictly before t.
func Before(column string, t time.Time) Filter {
	return Lt(column, FormatTimestamp(t))
}

// In matches rows where column is one of values.
func In(column string, values []string) Filter {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return Filter{Column: column, Op: "in", Value: "(" + strings.Join(quoted, ",") + ")"}
}

// Query describes a select.
type Query struct {
	Select  string // column list, may embed related tables
	Filters []Filter
	Order   []string // terms like "created_at.desc"
	Limit   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Select != "" {
		v.Set("select", q.Select)
	}
	for _, f := range q.Filters {
		v.Add(f.Column, f.Op+"."+f.Value)
	}
	if len(q.Order) > 0 {
		v.Set("order", strings.Join(q.Order, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// FormatTimestamp renders t the way the database compares timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts the REST API's RFC 3339 timestamps as well as the
// space-separated form realtime payloads use. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

var cqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `*`, `\*`, `?`, `\?`, `^`, `\^`)

// CQLEquals builds an exact-match CQL clause, e.g. barcode=="123".
func CQLEquals(field, value string) string {
	return field + `=="` + cqlEscaper.Replace(value) + `"`
}

// ListQuery builds the query parameters for a list endpoint.
// A limit of 0 asks only for totalRecords.
func ListQuery(cql string, limit, offset int) url.Values {
	q := url.Values{}
	if cql != "" {
		q.Set("query", cql)
	}
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}

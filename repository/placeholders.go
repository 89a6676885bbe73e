package repository

import (
	"strconv"
	"strings"

	"campus-idcards/db"
)

// placeholderPrefix maps a database/sql driver name to its bind parameter prefix
var placeholderPrefix = map[string]byte{
	db.DriverMySQL:    '?',
	db.DriverPostgres: '$',
}

// rebind rewrites '?' placeholders into the driver's own syntax.
// Queries are written once with '?'; MySQL keeps them, PostgreSQL gets $1..$n.
func rebind(driver, query string) string {
	prefix, ok := placeholderPrefix[driver]
	if !ok || prefix == '?' {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		b.WriteByte(prefix)
		b.WriteString(strconv.Itoa(n))
		n++
	}
	return b.String()
}

// inList returns "?, ?, ?" for n values
func inList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

package sqldb

import (
	"strconv"
	"strings"
)

type dialect struct {
	name       string
	driver     string
	positional bool // $1, $2 instead of ?
	migrations []migration
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driver:     "sqlite",
	migrations: sqliteMigrations,
}

var postgresDialect = dialect{
	name:       "postgres",
	driver:     "postgres",
	positional: true,
	migrations: postgresMigrations,
}

// rebind rewrites '?' placeholders for drivers that expect numbered ones.
// Queries in this package never contain '?' inside literals.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

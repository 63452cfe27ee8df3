package db

import (
	"fmt"
	"strings"
)

// Query assembles a parameterized SELECT. Arg registers a value and
// returns its placeholder so clause text and argument order stay in step.
type Query struct {
	table   string
	cols    string
	where   []string
	args    []interface{}
	orderBy string
}

func NewQuery(table, cols string) *Query {
	return &Query{table: table, cols: cols}
}

// Arg appends v to the argument list and returns its "$n" placeholder.
func (q *Query) Arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// Where ANDs a clause onto the query.
func (q *Query) Where(clause string) *Query {
	q.where = append(q.where, clause)
	return q
}

// WhereAny ANDs the disjunction of clauses. An empty list adds nothing.
func (q *Query) WhereAny(clauses ...string) *Query {
	switch len(clauses) {
	case 0:
	case 1:
		q.where = append(q.where, clauses[0])
	default:
		q.where = append(q.where, "("+strings.Join(clauses, " OR ")+")")
	}
	return q
}

func (q *Query) OrderBy(orderBy string) *Query {
	q.orderBy = orderBy
	return q
}

func (q *Query) whereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *Query) CountSQL() string {
	return "SELECT COUNT(*) FROM " + q.table + q.whereSQL()
}

func (q *Query) Args() []interface{} {
	return q.args
}

// DataSQL returns the SELECT with ORDER BY and LIMIT/OFFSET appended, and
// the matching argument list. A non-positive limit omits LIMIT and OFFSET.
func (q *Query) DataSQL(limit, offset int) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT " + q.cols + " FROM " + q.table + q.whereSQL())
	if q.orderBy != "" {
		b.WriteString(" ORDER BY " + q.orderBy)
	}
	args := append([]interface{}(nil), q.args...)
	if limit > 0 {
		args = append(args, limit, offset)
		fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return b.String(), args
}

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Order direction for query results.
type Order string

const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

type condOp string

const (
	opEq  condOp = "="
	opNeq condOp = "<>"
	opGte condOp = ">="
	opLte condOp = "<="
	opGt  condOp = ">"
	opLt  condOp = "<"
	opIn  condOp = "IN"
)

type cond struct {
	column string
	op     condOp
	value  any
	values []any // IN membership
}

// Query describes a read against one named table: column projection,
// equality/membership/range filters, ordering, and row-count limiting.
type Query struct {
	table   string
	columns []string
	conds   []cond
	orderBy string
	order   Order
	limit   int
	offset  int
}

// From starts a query against a table.
func From(table string) *Query {
	return &Query{table: table, order: Asc}
}

// Columns sets the projection; defaults to * when never called.
func (q *Query) Columns(cols ...string) *Query {
	q.columns = cols
	return q
}

// Eq adds an equality filter.
func (q *Query) Eq(column string, value any) *Query {
	q.conds = append(q.conds, cond{column: column, op: opEq, value: value})
	return q
}

// Neq adds an inequality filter.
func (q *Query) Neq(column string, value any) *Query {
	q.conds = append(q.conds, cond{column: column, op: opNeq, value: value})
	return q
}

// In adds a membership filter. An empty value set matches no rows.
func (q *Query) In(column string, values ...any) *Query {
	q.conds = append(q.conds, cond{column: column, op: opIn, values: values})
	return q
}

// Gte adds a lower-bound filter.
func (q *Query) Gte(column string, value any) *Query {
	q.conds = append(q.conds, cond{column: column, op: opGte, value: value})
	return q
}

// Lte adds an upper-bound filter.
func (q *Query) Lte(column string, value any) *Query {
	q.conds = append(q.conds, cond{column: column, op: opLte, value: value})
	return q
}

// Lt adds a strict upper-bound filter.
func (q *Query) Lt(column string, value any) *Query {
	q.conds = append(q.conds, cond{column: column, op: opLt, value: value})
	return q
}

// OrderBy sets the sort column and direction.
func (q *Query) OrderBy(column string, order Order) *Query {
	q.orderBy = column
	q.order = order
	return q
}

// Limit caps the row count; zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips the first n rows; zero means no offset.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// SQL renders the query with $N placeholders and returns the bound args.
func (q *Query) SQL() (string, []any, error) {
	if q.table == "" {
		return "", nil, fmt.Errorf("query has no table")
	}

	proj := "*"
	if len(q.columns) > 0 {
		proj = strings.Join(q.columns, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(proj)
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)

	args := make([]any, 0, len(q.conds))
	where, args, err := renderConds(q.conds, args)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
		sb.WriteString(" ")
		sb.WriteString(string(q.order))
	}
	if q.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.offset))
	}

	return sb.String(), args, nil
}

// renderCountSQL renders a COUNT(*) variant of the query, ignoring
// projection, ordering and limit.
func (q *Query) renderCountSQL() (string, []any, error) {
	args := make([]any, 0, len(q.conds))
	where, args, err := renderConds(q.conds, args)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT COUNT(*) FROM " + q.table
	if where != "" {
		sql += " WHERE " + where
	}
	return sql, args, nil
}

func renderConds(conds []cond, args []any) (string, []any, error) {
	if len(conds) == 0 {
		return "", args, nil
	}

	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch c.op {
		case opIn:
			if len(c.values) == 0 {
				// Membership over an empty set matches nothing.
				parts = append(parts, "FALSE")
				continue
			}
			ph := make([]string, len(c.values))
			for i, v := range c.values {
				args = append(args, v)
				ph[i] = "$" + strconv.Itoa(len(args))
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", c.column, strings.Join(ph, ", ")))
		default:
			args = append(args, c.value)
			parts = append(parts, fmt.Sprintf("%s %s $%d", c.column, c.op, len(args)))
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

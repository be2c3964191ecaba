// Package query compiles entity metadata and search conditions into raw,
// dialect-specific SQL. Two backends are provided: Postgres-style
// (LIMIT/OFFSET, double-quoted identifiers) and T-SQL-style
// (OFFSET...FETCH, bracketed identifiers). Both produce semantically
// identical result sets for identical inputs.
//
// Compiled statements use numbered dollar placeholders ($1, $2, ...)
// and flat argument lists: the executor hands the text to the driver
// verbatim, so list operands are expanded here rather than relying on
// any downstream rewriting.
package query

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// TotalRowColumn is the window-count column carried by paged queries so a
// single round trip yields both the page and the grand total.
const TotalRowColumn = "total_row"

// Join is a LEFT JOIN derived from a parent-reference descriptor. The
// alias is the descriptor's field name.
type Join struct {
	Alias  string
	Table  string
	Column string
	// LocalColumn is the foreign-key column on the base table
	LocalColumn string
}

// Query is the dialect-independent description of a SELECT over one
// entity table.
type Query struct {
	Table string
	// PrimaryKey backs the deterministic fallback ordering T-SQL paging
	// requires when no sort is given
	PrimaryKey string
	Joins      []Join
	Conditions []shared.SearchCondition
	Sort       *shared.SortSpec
	// Fields is the projection; empty projects Columns
	Fields []string
	// Columns is the full base-type projection used when Fields is empty
	Columns []string
	Page    *shared.PageRequest
}

// Dialect turns a Query into an executable SQL string with bound args.
type Dialect interface {
	Name() string
	// Compile builds the SELECT, including the total-row window column
	// when the query is paged
	Compile(q Query) (string, []any, error)
	// CompileCount builds a COUNT(*) over the same filter
	CompileCount(q Query) (string, []any, error)
	// CompileCountLimit builds a bounded COUNT(*) that never scans more
	// than limit rows, for incremental total estimation
	CompileCountLimit(q Query, limit int) (string, []any, error)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is safe to splice into SQL as an
// identifier. Dotted names validate each segment.
func ValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !identPattern.MatchString(part) {
			return false
		}
	}
	return true
}

// base carries the dialect-independent compilation logic. The two dialect
// backends differ only in identifier quoting and the paging/limit clause
// spelling.
type base struct {
	quote func(ident string) string
}

// quoteQualified quotes a possibly table-qualified column, prefixing
// unqualified names with the base table.
func (b base) quoteQualified(table, column string) (string, error) {
	if !ValidIdent(column) {
		return "", shared.NewDomainError(shared.KindInvalidInput, fmt.Sprintf("invalid column name %q", column))
	}
	if strings.Contains(column, ".") {
		parts := strings.SplitN(column, ".", 2)
		return b.quote(parts[0]) + "." + b.quote(parts[1]), nil
	}
	return b.quote(table) + "." + b.quote(column), nil
}

// projectionAlias flattens a qualified column into a scan-friendly alias
func projectionAlias(column string) string {
	return strings.ReplaceAll(column, ".", "_")
}

func (b base) writeProjection(sb *strings.Builder, q Query, withTotal bool) error {
	fields := q.Fields
	if len(fields) == 0 {
		fields = q.Columns
	}
	if len(fields) == 0 {
		return shared.NewDomainError(shared.KindInvalidInput, "query has no columns to project")
	}
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		col, err := b.quoteQualified(q.Table, f)
		if err != nil {
			return err
		}
		sb.WriteString(col)
		if strings.Contains(f, ".") {
			sb.WriteString(" AS ")
			sb.WriteString(b.quote(projectionAlias(f)))
		}
	}
	if withTotal {
		sb.WriteString(", COUNT(*) OVER () AS ")
		sb.WriteString(b.quote(TotalRowColumn))
	}
	return nil
}

func (b base) writeFrom(sb *strings.Builder, q Query) error {
	if !ValidIdent(q.Table) {
		return shared.NewDomainError(shared.KindInvalidInput, fmt.Sprintf("invalid table name %q", q.Table))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.quote(q.Table))
	for _, j := range q.Joins {
		if !ValidIdent(j.Table) || !ValidIdent(j.Alias) || !ValidIdent(j.Column) || !ValidIdent(j.LocalColumn) {
			return shared.NewDomainError(shared.KindInvalidInput, fmt.Sprintf("invalid join %q", j.Alias))
		}
		sb.WriteString(" LEFT JOIN ")
		sb.WriteString(b.quote(j.Table))
		sb.WriteString(" AS ")
		sb.WriteString(b.quote(j.Alias))
		sb.WriteString(" ON ")
		sb.WriteString(b.quote(j.Alias))
		sb.WriteString(".")
		sb.WriteString(b.quote(j.Column))
		sb.WriteString(" = ")
		sb.WriteString(b.quote(q.Table))
		sb.WriteString(".")
		sb.WriteString(b.quote(j.LocalColumn))
	}
	return nil
}

// writeWhere compiles the condition tree: ungrouped predicates are ANDed,
// predicates sharing a group are parenthesized and joined by their combine
// operator, and each group is ANDed to the rest.
func (b base) writeWhere(sb *strings.Builder, q Query) ([]any, error) {
	if len(q.Conditions) == 0 {
		return nil, nil
	}

	var (
		clauses []string
		args    []any
	)

	groupOrder := []int{}
	groups := map[int][]shared.SearchCondition{}
	for _, c := range q.Conditions {
		if c.Group == 0 {
			frag, condArgs, err := b.predicate(q.Table, c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, frag)
			args = append(args, condArgs...)
			continue
		}
		if _, seen := groups[c.Group]; !seen {
			groupOrder = append(groupOrder, c.Group)
		}
		groups[c.Group] = append(groups[c.Group], c)
	}

	for _, g := range groupOrder {
		var parts []string
		combine := shared.CombineAnd
		for i, c := range groups[g] {
			frag, condArgs, err := b.predicate(q.Table, c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, frag)
			args = append(args, condArgs...)
			if i > 0 && c.Combine == shared.CombineOr {
				combine = shared.CombineOr
			}
		}
		clauses = append(clauses, "("+strings.Join(parts, " "+string(combine)+" ")+")")
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(clauses, " AND "))
	return args, nil
}

// predicate compiles a single condition into a SQL fragment and its args
func (b base) predicate(table string, c shared.SearchCondition) (string, []any, error) {
	col, err := b.quoteQualified(table, c.Field)
	if err != nil {
		return "", nil, err
	}

	switch c.Op {
	case shared.OpEqual:
		// Case-insensitive for string operands; EqualExact is the
		// case-sensitive variant.
		if s, ok := c.Value.(string); ok {
			return "LOWER(" + col + ") = LOWER(?)", []any{s}, nil
		}
		return col + " = ?", []any{c.Value}, nil
	case shared.OpEqualExact:
		return col + " = ?", []any{c.Value}, nil
	case shared.OpNotEqual:
		return col + " <> ?", []any{c.Value}, nil
	case shared.OpContains:
		// Pattern matches fold case on both sides; collation defaults
		// differ between the backends otherwise.
		return "LOWER(" + col + ") LIKE LOWER(?)", []any{"%" + fmt.Sprintf("%v", c.Value) + "%"}, nil
	case shared.OpStartsWith:
		return "LOWER(" + col + ") LIKE LOWER(?)", []any{fmt.Sprintf("%v", c.Value) + "%"}, nil
	case shared.OpEndsWith:
		return "LOWER(" + col + ") LIKE LOWER(?)", []any{"%" + fmt.Sprintf("%v", c.Value)}, nil
	case shared.OpGreaterThan:
		return col + " > ?", []any{c.Value}, nil
	case shared.OpGreaterOrEqual:
		return col + " >= ?", []any{c.Value}, nil
	case shared.OpLessThan:
		return col + " < ?", []any{c.Value}, nil
	case shared.OpLessOrEqual:
		return col + " <= ?", []any{c.Value}, nil
	case shared.OpIn:
		vals := listValues(c.Value)
		if len(vals) == 0 {
			// An empty membership test matches nothing.
			return "1 = 0", nil, nil
		}
		return col + " IN (" + placeholderList(len(vals)) + ")", vals, nil
	case shared.OpNotIn:
		vals := listValues(c.Value)
		if len(vals) == 0 {
			return "1 = 1", nil, nil
		}
		return col + " NOT IN (" + placeholderList(len(vals)) + ")", vals, nil
	case shared.OpIsNull:
		return col + " IS NULL", nil, nil
	case shared.OpIsNotNull:
		return col + " IS NOT NULL", nil, nil
	default:
		return "", nil, shared.NewDomainError(shared.KindInvalidInput, fmt.Sprintf("unsupported operator %q", c.Op))
	}
}

func (b base) writeOrder(sb *strings.Builder, q Query) (bool, error) {
	if q.Sort == nil || q.Sort.Field == "" {
		return false, nil
	}
	col, err := b.quoteQualified(q.Table, q.Sort.Field)
	if err != nil {
		return false, err
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(col)
	if q.Sort.Descending {
		sb.WriteString(" DESC")
	} else {
		sb.WriteString(" ASC")
	}
	return true, nil
}

// listValues flattens an IN/NOT IN operand into individual bind values.
// A scalar operand becomes a one-element list.
func listValues(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	vals := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		vals[i] = rv.Index(i).Interface()
	}
	return vals
}

func placeholderList(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// numberPlaceholders rewrites the compiler's positional ? markers into
// $1..$N. Identifiers are validated before splicing, so a literal ? can
// only be a marker.
func numberPlaceholders(sql string) string {
	if !strings.ContainsRune(sql, '?') {
		return sql
	}
	var sb strings.Builder
	sb.Grow(len(sql) + 16)
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(sql[i])
	}
	return sb.String()
}

// compileCount is shared by both dialects: counting ignores sort and page
func (b base) compileCount(q Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*)")
	if err := b.writeFrom(&sb, q); err != nil {
		return "", nil, err
	}
	args, err := b.writeWhere(&sb, q)
	if err != nil {
		return "", nil, err
	}
	return numberPlaceholders(sb.String()), args, nil
}

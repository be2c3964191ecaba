package query

import (
	"fmt"
	"strings"
)

// SQLServer compiles queries in the T-SQL dialect: bracketed identifiers
// and OFFSET...FETCH paging. T-SQL requires an ORDER BY whenever OFFSET is
// used, so unsorted paged queries fall back to ordering by the primary key.
// Statements keep the engine's numbered placeholder form; @-prefixed
// parameters would collide with named-parameter handling in the executor.
type SQLServer struct {
	base
}

// NewSQLServer creates the T-SQL dialect backend
func NewSQLServer() *SQLServer {
	d := &SQLServer{}
	d.base.quote = d.Quote
	return d
}

// Name returns the dialect name
func (d *SQLServer) Name() string { return "sqlserver" }

// Quote brackets an identifier
func (d *SQLServer) Quote(ident string) string {
	return "[" + ident + "]"
}

// Compile builds the SELECT for q
func (d *SQLServer) Compile(q Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if err := d.writeProjection(&sb, q, q.Page != nil); err != nil {
		return "", nil, err
	}
	if err := d.writeFrom(&sb, q); err != nil {
		return "", nil, err
	}
	args, err := d.writeWhere(&sb, q)
	if err != nil {
		return "", nil, err
	}
	ordered, err := d.writeOrder(&sb, q)
	if err != nil {
		return "", nil, err
	}
	if q.Page != nil {
		if !ordered {
			if q.PrimaryKey == "" {
				sb.WriteString(" ORDER BY (SELECT NULL)")
			} else {
				col, err := d.quoteQualified(q.Table, q.PrimaryKey)
				if err != nil {
					return "", nil, err
				}
				sb.WriteString(" ORDER BY ")
				sb.WriteString(col)
				sb.WriteString(" ASC")
			}
		}
		page := q.Page.Normalize()
		sb.WriteString(fmt.Sprintf(" OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", page.Offset(), page.PageSize))
	}
	return numberPlaceholders(sb.String()), args, nil
}

// CompileCount builds a COUNT(*) over the same filter
func (d *SQLServer) CompileCount(q Query) (string, []any, error) {
	return d.compileCount(q)
}

// CompileCountLimit builds a bounded count that scans at most limit rows
func (d *SQLServer) CompileCountLimit(q Query, limit int) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SELECT COUNT(*) FROM (SELECT TOP %d 1 AS [one]", limit))
	if err := d.writeFrom(&sb, q); err != nil {
		return "", nil, err
	}
	args, err := d.writeWhere(&sb, q)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(") AS [bounded]")
	return numberPlaceholders(sb.String()), args, nil
}

package query

import (
	"fmt"
	"strings"
)

// Postgres compiles queries in the Postgres dialect: double-quoted
// identifiers and LIMIT/OFFSET paging. SQLite accepts the same spelling,
// including $N parameters, which is what the engine's behavioral tests
// run against.
type Postgres struct {
	base
}

// NewPostgres creates the Postgres dialect backend
func NewPostgres() *Postgres {
	d := &Postgres{}
	d.base.quote = d.Quote
	return d
}

// Name returns the dialect name
func (d *Postgres) Name() string { return "postgres" }

// Quote double-quotes an identifier
func (d *Postgres) Quote(ident string) string {
	return `"` + ident + `"`
}

// Compile builds the SELECT for q
func (d *Postgres) Compile(q Query) (string, []any, error) {
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
	if _, err := d.writeOrder(&sb, q); err != nil {
		return "", nil, err
	}
	if q.Page != nil {
		page := q.Page.Normalize()
		sb.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", page.PageSize, page.Offset()))
	}
	return numberPlaceholders(sb.String()), args, nil
}

// CompileCount builds a COUNT(*) over the same filter
func (d *Postgres) CompileCount(q Query) (string, []any, error) {
	return d.compileCount(q)
}

// CompileCountLimit builds a bounded count that scans at most limit rows
func (d *Postgres) CompileCountLimit(q Query, limit int) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM (SELECT 1")
	if err := d.writeFrom(&sb, q); err != nil {
		return "", nil, err
	}
	args, err := d.writeWhere(&sb, q)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(fmt.Sprintf(" LIMIT %d) AS %s", limit, d.Quote("bounded")))
	return numberPlaceholders(sb.String()), args, nil
}

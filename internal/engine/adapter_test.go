package engine

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockDB opens a GORM connection over sqlmock so tests can assert the
// exact statement text the adapter hands to the driver.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestAdapterCount(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewAdapter(db)

	sql := `SELECT COUNT(*) FROM "products" WHERE "products"."company_code" = $1`
	mock.ExpectQuery(regexp.QuoteMeta(sql)).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := a.Count(context.Background(), db, sql, []any{"acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCountPropagatesError(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewAdapter(db)

	sql := `SELECT COUNT(*) FROM "products"`
	mock.ExpectQuery(regexp.QuoteMeta(sql)).
		WillReturnError(assert.AnError)

	_, err := a.Count(context.Background(), db, sql, nil)
	assert.Error(t, err)
}

func TestAdapterFieldMaps(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewAdapter(db)

	sql := `SELECT "products"."code", "products"."name" FROM "products" WHERE "products"."company_code" = $1`
	mock.ExpectQuery(regexp.QuoteMeta(sql)).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"code", "name"}).
			AddRow("p-1", "Widget").
			AddRow("p-2", "Gadget"))

	rows, err := a.FieldMaps(context.Background(), db, sql, []any{"acme"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p-1", rows[0]["code"])
	assert.Equal(t, "Gadget", rows[1]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterNewCode(t *testing.T) {
	a := NewAdapter(nil)

	first := a.NewCode()
	second := a.NewCode()
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		page, size    int
		limit, offset int
	}{
		{0, 0, 20, 0},
		{2, 10, 10, 10},
		{3, 500, 20, 40},
		{-1, -5, 20, 0},
	}
	for _, tc := range cases {
		limit, offset := pageWindow(tc.page, tc.size)
		assert.Equal(t, tc.limit, limit)
		assert.Equal(t, tc.offset, offset)
	}
}

func TestOrderClause(t *testing.T) {
	allowed := map[string]string{"name": "p.name"}
	assert.Equal(t, "p.name DESC", orderClause(allowed, "name", "desc", "p.name ASC", "ASC"))
	assert.Equal(t, "p.name ASC", orderClause(allowed, "name", "sideways", "x", "ASC"))
	assert.Equal(t, "fallback", orderClause(allowed, "name; DROP TABLE", "ASC", "fallback", "ASC"))
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%ana%`, containsPattern("ANA"))
	assert.Equal(t, `%50\%\_off%`, containsPattern("50%_off"))
}

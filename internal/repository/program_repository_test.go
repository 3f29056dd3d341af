package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
)

var programDetailColumns = []string{"id", "name", "short_code", "description", "created_at", "updated_at", "enrollment_count"}

func TestProgramRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM programs p WHERE LOWER(p.name) LIKE $1 ORDER BY p.name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%diab%").
		WillReturnRows(sqlmock.NewRows(programDetailColumns).AddRow("p1", "Diabetes Care", "DIAB", "", now, now, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM programs p WHERE LOWER(p.name) LIKE $1")).
		WithArgs("%diab%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	programs, total, err := repo.List(context.Background(), models.ProgramFilter{Search: "Diab"})
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, 3, programs[0].EnrollmentCount)
	assert.Equal(t, "DIAB", programs[0].ShortCode)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM programs p WHERE p.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM programs WHERE name = $1 LIMIT 1")).
		WithArgs("Diabetes Care").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM programs WHERE short_code = $1 AND id <> $2 LIMIT 1")).
		WithArgs("DIAB", "p1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByName(context.Background(), "Diabetes Care", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByShortCode(context.Background(), "DIAB", "p1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectExec("INSERT INTO programs").
		WithArgs(sqlmock.AnyArg(), "Diabetes Care", "DIAB", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM programs WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	program := &models.Program{Name: "Diabetes Care", ShortCode: "DIAB"}
	require.NoError(t, repo.Create(context.Background(), program))
	assert.NotEmpty(t, program.ID)
	assert.ErrorIs(t, repo.Delete(context.Background(), "p1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/model"
)

func TestGetOrCreateExisting(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(genreTable.selectIDSQL()).WithArgs("Drama").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := getOrCreate(context.Background(), db, genreTable, "Drama")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateInserts(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(actorTable.selectIDSQL()).WithArgs("Al Pacino").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(actorTable.insertSQL()).WithArgs("Al Pacino").WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := getOrCreate(context.Background(), db, actorTable, "Al Pacino")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateLosesInsertRace(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(languageTable.selectIDSQL()).WithArgs("English").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(languageTable.insertSQL()).WithArgs("English").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'English' for key 'name'"})
	mock.ExpectQuery(languageTable.selectIDLockedSQL()).WithArgs("English").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	id, err := getOrCreate(context.Background(), db, languageTable, "English")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateRejectedKey(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(countryTable.selectIDSQL()).WithArgs("TOOLONGCODE").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(countryTable.insertSQL()).WithArgs("TOOLONGCODE").
		WillReturnError(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'code'"})

	_, err := getOrCreate(context.Background(), db, countryTable, "TOOLONGCODE")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveCountryEmptyCode(t *testing.T) {
	db, mock := newMockDB(t)

	id, err := resolveCountry(context.Background(), db, "")
	require.NoError(t, err)
	assert.False(t, id.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkAllSkipsKeysResolvingToSameRow(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(genreTable.selectIDSQL()).WithArgs("Drama").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(genreTable.insertLinkSQL()).WithArgs(4, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(genreTable.selectIDSQL()).WithArgs("drama").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	require.NoError(t, linkAll(context.Background(), db, genreTable, 4, []string{"Drama", "drama"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRepoListings(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLookupRepo(db)

	mock.ExpectQuery(qListCountries).WillReturnRows(
		sqlmock.NewRows([]string{"id", "code", "name"}).AddRow(2, "FR", nil).AddRow(1, "US", "United States"))
	mock.ExpectQuery(genreTable.listSQL()).WillReturnRows(lookupRows(int64(3), "Crime", int64(1), "Drama"))

	countries, err := repo.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Nil(t, countries[0].Name)
	assert.Equal(t, "United States", *countries[1].Name)

	genres, err := repo.Names(context.Background(), Genres)
	require.NoError(t, err)
	assert.Equal(t, []model.Lookup{{ID: 3, Name: "Crime"}, {ID: 1, Name: "Drama"}}, genres)

	_, err = repo.Names(context.Background(), LookupKind(42))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRepoQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(actorTable.listSQL()).WillReturnError(errors.New("gone away"))

	_, err := NewLookupRepo(db).Names(context.Background(), Actors)
	assert.EqualError(t, err, "gone away")
}

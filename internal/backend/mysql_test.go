package backend

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

var personColumns = []string{"id", "nom", "prenom", "date_naissance", "adresse", "telephone"}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that all statements are being
// prepared, in the order of NewMySQLStore.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare("INSERT INTO personne")
	mock.ExpectPrepare("UPDATE personne")
	mock.ExpectPrepare("SELECT (.+) FROM personne ORDER BY id")
	mock.ExpectPrepare("SELECT (.+) FROM personne WHERE id = \\?")
	mock.ExpectPrepare("SELECT (.+) FROM personne WHERE REPLACE")
	mock.ExpectPrepare("DELETE FROM personne WHERE id = \\?")
}

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	db, mock := createMockObjects(t)
	t.Cleanup(func() { db.Close() })
	expectPreparedStatements(mock)
	store, err := NewMySQLStore(db)
	require.NoError(t, err)
	return store, mock
}

func verify(t *testing.T, mock sqlmock.Sqlmock) {
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLInsert expects the named insert to receive every column and the new id to be set.
func TestMySQLInsert(t *testing.T) {
	store, mock := newMockStore(t)
	birth := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO personne").
		WithArgs("DIOP", "Fatou", birth, "Dakar", "771234567").
		WillReturnResult(sqlmock.NewResult(42, 1))

	p := model.Person{
		LastName:  "DIOP",
		FirstName: "Fatou",
		BirthDate: datePtr(1990, time.May, 1),
		Address:   model.StringPtr("Dakar"),
		Phone:     model.StringPtr("771234567"),
	}
	require.NoError(t, store.Insert(context.Background(), &p))
	assert.Equal(t, int64(42), p.Id)
	verify(t, mock)
}

func TestMySQLInsertNullColumns(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO personne").
		WithArgs("FALL", "Moussa", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(7, 1))

	p := model.Person{LastName: "FALL", FirstName: "Moussa"}
	require.NoError(t, store.Insert(context.Background(), &p))
	assert.Equal(t, int64(7), p.Id)
	verify(t, mock)
}

func TestMySQLFindAll(t *testing.T) {
	store, mock := newMockStore(t)
	rows := mock.NewRows(personColumns).
		AddRow(1, "DIOP", "Fatou", time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC), "Dakar", "771234567").
		AddRow(2, "FALL", "Moussa", nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM personne ORDER BY id").WillReturnRows(rows)

	persons, err := store.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "1990-05-01", persons[0].BirthDate.String())
	assert.Equal(t, "771234567", *persons[0].Phone)
	assert.Nil(t, persons[1].BirthDate)
	assert.Nil(t, persons[1].Address)
	verify(t, mock)
}

func TestMySQLFindByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM personne WHERE id = \\?").
		WithArgs(int64(9999)).
		WillReturnRows(mock.NewRows(personColumns))

	_, err := store.FindByID(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	verify(t, mock)
}

func TestMySQLFindByPhoneStripsSpaces(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM personne WHERE REPLACE").
		WithArgs("771234567").
		WillReturnRows(mock.NewRows(personColumns).AddRow(3, "DIOP", "Fatou", nil, nil, "77 123 45 67"))

	p, err := store.FindByPhone(context.Background(), "77 123 45 67")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Id)
	verify(t, mock)
}

// TestMySQLUpdateUnchangedRow expects an update that changes nothing to succeed when the row
// exists.
func TestMySQLUpdateUnchangedRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE personne").
		WithArgs("DIOP", "Fatou", nil, nil, nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM personne WHERE id = \\?").
		WithArgs(int64(5)).
		WillReturnRows(mock.NewRows(personColumns).AddRow(5, "DIOP", "Fatou", nil, nil, nil))

	require.NoError(t, store.Update(context.Background(), model.Person{Id: 5, LastName: "DIOP", FirstName: "Fatou"}))
	verify(t, mock)
}

func TestMySQLUpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE personne").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM personne WHERE id = \\?").
		WithArgs(int64(6)).
		WillReturnRows(mock.NewRows(personColumns))

	err := store.Update(context.Background(), model.Person{Id: 6, LastName: "DIOP", FirstName: "Fatou"})
	assert.ErrorIs(t, err, ErrNotFound)
	verify(t, mock)
}

func TestMySQLDelete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM personne WHERE id = \\?").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM personne WHERE id = \\?").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), 3))
	assert.ErrorIs(t, store.Delete(context.Background(), 4), ErrNotFound)
	verify(t, mock)
}

// TestMySQLSearch expects one LIKE condition per set criterion, names lower-cased.
func TestMySQLSearch(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM personne WHERE LOWER\\(nom\\) LIKE \\? ESCAPE (.+) AND telephone LIKE \\? ESCAPE (.+) ORDER BY id").
		WithArgs("%diop%", "%77%").
		WillReturnRows(mock.NewRows(personColumns).AddRow(1, "DIOP", "Fatou", nil, nil, "771234567"))

	persons, err := store.Search(context.Background(), model.SearchCriteria{LastName: "Diop", Phone: "77"})
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, "DIOP", persons[0].LastName)
	verify(t, mock)
}

func TestSearchQueryWithoutCriteria(t *testing.T) {
	query, args := searchQuery(model.SearchCriteria{})
	assert.Equal(t, "SELECT "+columns+" FROM personne ORDER BY id", query)
	assert.Empty(t, args)
}

// TestSearchQueryEscapesWildcards expects percent signs, underscores and backslashes in the
// criteria to match literally.
func TestSearchQueryEscapesWildcards(t *testing.T) {
	query, args := searchQuery(model.SearchCriteria{LastName: "A_B", FirstName: `50%\x`, Phone: "7_"})
	assert.Equal(t, "SELECT "+columns+" FROM personne WHERE LOWER(nom) LIKE ? ESCAPE '\\\\' AND "+
		"LOWER(prenom) LIKE ? ESCAPE '\\\\' AND telephone LIKE ? ESCAPE '\\\\' ORDER BY id", query)
	assert.Equal(t, []any{`%a\_b%`, `%50\%\\x%`, `%7\_%`}, args)
}

func TestMySQLSearchUnderscore(t *testing.T) {
	store, mock := newMockStore(t)
	query, _ := searchQuery(model.SearchCriteria{LastName: "_"})
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(`%\_%`).
		WillReturnRows(mock.NewRows(personColumns))

	persons, err := store.Search(context.Background(), model.SearchCriteria{LastName: "_"})
	require.NoError(t, err)
	assert.Empty(t, persons)
	verify(t, mock)
}

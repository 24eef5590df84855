package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// columns is the select list matching the db tags of model.Person.
const columns = `id, nom, prenom, date_naissance, adresse, telephone`

// MySQLStore persists persons in the table "personne" of a MySQL database.
type MySQLStore struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a person.
	insert *sqlx.NamedStmt
	// update is a prepared statement for replacing all fields of a person.
	update *sqlx.NamedStmt
	// selectAll is a prepared statement for listing all persons.
	selectAll *sqlx.Stmt
	// selectWhereId is a prepared statement for selecting the person with a given id.
	selectWhereId *sqlx.Stmt
	// selectWherePhone is a prepared statement for selecting the person with a given phone.
	selectWherePhone *sqlx.Stmt
	// deleteWhereId is a prepared statement for deleting the person with a given id.
	deleteWhereId *sqlx.Stmt
}

var _ Store = (*MySQLStore)(nil)

// OpenDatabase opens a MySQL connection pool for the DSN, e.g.
// "root:secret@tcp(localhost:3306)/personnes?parseTime=true".
func OpenDatabase(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return sqlDB, nil
}

// NewMySQLStore wraps sqlDB with sqlx and prepares all statements. The database can be a real
// database for production use or a mock database within unit tests.
func NewMySQLStore(sqlDB *sql.DB) (*MySQLStore, error) {
	s := &MySQLStore{db: sqlx.NewDb(sqlDB, "mysql")}
	var err error

	// Prepared statements offer a significant speed increase if executed many times.
	if s.insert, err = s.db.PrepareNamed(`
		INSERT INTO personne (nom, prenom, date_naissance, adresse, telephone)
		VALUES (:nom, :prenom, :date_naissance, :adresse, :telephone)
	`); err != nil {
		return nil, fmt.Errorf("could not prepare insert: %w", err)
	}
	if s.update, err = s.db.PrepareNamed(`
		UPDATE personne
		SET nom = :nom, prenom = :prenom, date_naissance = :date_naissance,
			adresse = :adresse, telephone = :telephone
		WHERE id = :id
	`); err != nil {
		return nil, fmt.Errorf("could not prepare update: %w", err)
	}
	if s.selectAll, err = s.db.Preparex(`
		SELECT ` + columns + ` FROM personne ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("could not prepare select all: %w", err)
	}
	if s.selectWhereId, err = s.db.Preparex(`
		SELECT ` + columns + ` FROM personne WHERE id = ?
	`); err != nil {
		return nil, fmt.Errorf("could not prepare select by id: %w", err)
	}
	if s.selectWherePhone, err = s.db.Preparex(`
		SELECT ` + columns + ` FROM personne WHERE REPLACE(telephone, ' ', '') = ? LIMIT 1
	`); err != nil {
		return nil, fmt.Errorf("could not prepare select by phone: %w", err)
	}
	if s.deleteWhereId, err = s.db.Preparex(`
		DELETE FROM personne WHERE id = ?
	`); err != nil {
		return nil, fmt.Errorf("could not prepare delete: %w", err)
	}
	return s, nil
}

// Close releases the prepared statements and the connection pool.
func (s *MySQLStore) Close() error {
	for _, stmt := range []interface{ Close() error }{
		s.insert, s.update, s.selectAll, s.selectWhereId, s.selectWherePhone, s.deleteWhereId,
	} {
		_ = stmt.Close()
	}
	return s.db.Close()
}

func (s *MySQLStore) Insert(ctx context.Context, p *model.Person) error {
	result, err := s.insert.ExecContext(ctx, p)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	p.Id = id
	return nil
}

func (s *MySQLStore) Update(ctx context.Context, p model.Person) error {
	result, err := s.update.ExecContext(ctx, p)
	if err != nil {
		return fmt.Errorf("update person %d: %w", p.Id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person %d: %w", p.Id, err)
	}
	// MySQL reports 0 affected rows when nothing changed, so look the record up before
	// declaring it missing.
	if rows == 0 {
		if _, err := s.FindByID(ctx, p.Id); err != nil {
			return err
		}
	}
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, id int64) error {
	result, err := s.deleteWhereId.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) FindByID(ctx context.Context, id int64) (model.Person, error) {
	return s.getOne(ctx, s.selectWhereId, id)
}

func (s *MySQLStore) FindByPhone(ctx context.Context, phone string) (model.Person, error) {
	return s.getOne(ctx, s.selectWherePhone, stripSpaces(phone))
}

func (s *MySQLStore) FindAll(ctx context.Context) ([]model.Person, error) {
	persons := []model.Person{}
	if err := s.selectAll.SelectContext(ctx, &persons); err != nil {
		return nil, fmt.Errorf("select persons: %w", err)
	}
	return persons, nil
}

func (s *MySQLStore) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Person, error) {
	query, args := searchQuery(criteria)
	persons := []model.Person{}
	if err := s.db.SelectContext(ctx, &persons, query, args...); err != nil {
		return nil, fmt.Errorf("search persons: %w", err)
	}
	return persons, nil
}

func (s *MySQLStore) getOne(ctx context.Context, stmt *sqlx.Stmt, arg any) (model.Person, error) {
	var p model.Person
	err := stmt.GetContext(ctx, &p, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Person{}, ErrNotFound
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("select person: %w", err)
	}
	return p, nil
}

// searchQuery builds the filtered select. Only the set criteria become conditions. Wildcards
// in the criteria match literally.
func searchQuery(c model.SearchCriteria) (string, []any) {
	var conditions []string
	var args []any
	if c.LastName != "" {
		conditions = append(conditions, "LOWER(nom) LIKE ?"+likeEscape)
		args = append(args, likePattern(strings.ToLower(c.LastName)))
	}
	if c.FirstName != "" {
		conditions = append(conditions, "LOWER(prenom) LIKE ?"+likeEscape)
		args = append(args, likePattern(strings.ToLower(c.FirstName)))
	}
	if c.Phone != "" {
		conditions = append(conditions, "telephone LIKE ?"+likeEscape)
		args = append(args, likePattern(c.Phone))
	}
	query := "SELECT " + columns + " FROM personne"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY id", args
}

// likeEscape makes the backslash the escape character of a LIKE pattern.
const likeEscape = " ESCAPE '\\\\'"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s anywhere in the column.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

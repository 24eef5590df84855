package backend

import (
	"context"
	"errors"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// ErrNotFound is returned when no person has the requested id or phone.
var ErrNotFound = errors.New("person not found")

// Store persists persons. Implementations keep phones exactly as given; the service hands them
// over in canonical form.
type Store interface {
	// Insert stores p and assigns its id.
	Insert(ctx context.Context, p *model.Person) error
	// Update replaces every field of the person with id p.Id.
	Update(ctx context.Context, p model.Person) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (model.Person, error)
	// FindByPhone matches the phone ignoring spaces.
	FindByPhone(ctx context.Context, phone string) (model.Person, error)
	// FindAll returns every person ordered by id.
	FindAll(ctx context.Context) ([]model.Person, error)
	// Search matches names case-insensitively and phones as substrings. Empty criteria are
	// ignored; the others are combined with AND.
	Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Person, error)
}

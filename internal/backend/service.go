// Package backend is a reference implementation of the directory back end. It serves the REST
// resource /api/personnes for mutations and a GraphQL endpoint for list and search queries, on
// top of a Store that is either MySQL or in memory.
//
// It exists for local development and for the integration tests of the client packages.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/phone"
	"gitlab.com/dirk.krummacker/person-directory/internal/validation"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// Messages returned to clients.
const (
	msgPhoneTaken     = "phone number already in use"
	msgPhoneInvalid   = "the phone number must be a valid Senegalese number (9 digits starting with 7)"
	msgFutureBirth    = "the birth date cannot be in the future"
	msgTooYoung       = "the person must be at least 1 year old"
	msgUnrealistic    = "the birth date is not realistic"
	msgAddressInvalid = "the address contains invalid characters; only letters, digits, spaces, hyphens, commas and periods are allowed"
)

// ErrPhoneTaken is returned when another person already uses the phone number.
var ErrPhoneTaken = errors.New(msgPhoneTaken)

// FieldErrors maps wire field names to the reason of a missing or malformed value.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, ", ")
}

// RuleError is a business rule violation. Its message is meant for the user.
type RuleError struct {
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

// NotFoundError names the id that was not found.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("person not found with id: %d", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Service applies the rules of the directory on top of a Store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService returns a service backed by store. A nil logger disables logging.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create checks and normalizes p, then stores it.
func (s *Service) Create(ctx context.Context, p model.Person) (model.Person, error) {
	s.logger.Info("creating person", zap.String("nom", p.LastName), zap.String("prenom", p.FirstName))
	p.Id = 0
	if err := s.check(ctx, &p); err != nil {
		return model.Person{}, err
	}
	if err := s.store.Insert(ctx, &p); err != nil {
		return model.Person{}, err
	}
	s.logger.Info("person created", zap.Int64("id", p.Id))
	return p, nil
}

// Update checks and normalizes p, then replaces the person with the given id.
func (s *Service) Update(ctx context.Context, id int64, p model.Person) (model.Person, error) {
	s.logger.Info("updating person", zap.Int64("id", id))
	if _, err := s.FindByID(ctx, id); err != nil {
		return model.Person{}, err
	}
	p.Id = id
	if err := s.check(ctx, &p); err != nil {
		return model.Person{}, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return model.Person{}, s.notFound(id, err)
	}
	s.logger.Info("person updated", zap.Int64("id", id))
	return p, nil
}

// Delete removes the person with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.logger.Info("deleting person", zap.Int64("id", id))
	if err := s.store.Delete(ctx, id); err != nil {
		return s.notFound(id, err)
	}
	return nil
}

// FindByID returns the person with the given id.
func (s *Service) FindByID(ctx context.Context, id int64) (model.Person, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Person{}, s.notFound(id, err)
	}
	return p, nil
}

// FindAll returns every person.
func (s *Service) FindAll(ctx context.Context) ([]model.Person, error) {
	return s.store.FindAll(ctx)
}

// Search returns the persons matching all non-empty criteria. Spaces in the phone criterion
// are ignored.
func (s *Service) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Person, error) {
	criteria.LastName = strings.TrimSpace(criteria.LastName)
	criteria.FirstName = strings.TrimSpace(criteria.FirstName)
	criteria.Phone = stripSpaces(criteria.Phone)
	s.logger.Debug("searching persons",
		zap.String("nom", criteria.LastName),
		zap.String("prenom", criteria.FirstName),
		zap.String("telephone", criteria.Phone))
	return s.store.Search(ctx, criteria)
}

func (s *Service) notFound(id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return err
}

// check validates p and normalizes it in place: the last name is upper-cased, the first name
// capitalized, the address trimmed and the phone reduced to its 9 digits.
func (s *Service) check(ctx context.Context, p *model.Person) error {
	missing := FieldErrors{}
	if strings.TrimSpace(p.LastName) == "" {
		missing[validation.FieldLastName.String()] = validation.ReasonRequired.Message(validation.FieldLastName)
	}
	if strings.TrimSpace(p.FirstName) == "" {
		missing[validation.FieldFirstName.String()] = validation.ReasonRequired.Message(validation.FieldFirstName)
	}
	if len(missing) > 0 {
		return missing
	}

	for _, f := range []validation.Field{validation.FieldLastName, validation.FieldFirstName} {
		value := p.LastName
		if f == validation.FieldFirstName {
			value = p.FirstName
		}
		if r := validation.ValidateName(strings.TrimSpace(value)); r != validation.ReasonNone {
			return &RuleError{Message: r.Message(f)}
		}
	}

	address := strings.TrimSpace(model.StringValue(p.Address))
	if validation.ValidateAddress(address) != validation.ReasonNone {
		return &RuleError{Message: msgAddressInvalid}
	}

	if err := s.checkBirthDate(p.BirthDate); err != nil {
		return err
	}

	tel := stripSpaces(model.StringValue(p.Phone))
	if tel != "" {
		if validation.ValidatePhone(tel) != validation.ReasonNone {
			return &RuleError{Message: msgPhoneInvalid}
		}
		existing, err := s.store.FindByPhone(ctx, tel)
		switch {
		case err == nil && existing.Id != p.Id:
			return ErrPhoneTaken
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}
	}

	p.LastName = strings.ToUpper(strings.TrimSpace(p.LastName))
	p.FirstName = capitalize(strings.TrimSpace(p.FirstName))
	p.Address = model.StringPtr(address)
	p.Phone = model.StringPtr(phone.ToCanonical(tel))
	if p.BirthDate != nil && p.BirthDate.IsZero() {
		p.BirthDate = nil
	}
	return nil
}

func (s *Service) checkBirthDate(d *model.Date) error {
	if d == nil || d.IsZero() {
		return nil
	}
	today := s.now()
	if d.AfterDay(today) {
		return &RuleError{Message: msgFutureBirth}
	}
	age := yearsBetween(d.Time, today)
	if age < 1 {
		return &RuleError{Message: msgTooYoung}
	}
	if age > 120 {
		return &RuleError{Message: msgUnrealistic}
	}
	return nil
}

// yearsBetween counts the complete years from birth to today.
func yearsBetween(birth, today time.Time) int {
	years := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		years--
	}
	return years
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

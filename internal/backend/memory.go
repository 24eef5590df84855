package backend

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// MemoryStore keeps persons in a map. It is used for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	persons map[int64]model.Person
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{persons: map[int64]model.Person{}}
}

func (s *MemoryStore) Insert(_ context.Context, p *model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.Id = s.nextID
	s.persons[p.Id] = clonePerson(*p)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[p.Id]; !ok {
		return ErrNotFound
	}
	s.persons[p.Id] = clonePerson(p)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return ErrNotFound
	}
	delete(s.persons, id)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return model.Person{}, ErrNotFound
	}
	return clonePerson(p), nil
}

func (s *MemoryStore) FindByPhone(_ context.Context, phone string) (model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := stripSpaces(phone)
	for _, p := range s.sorted() {
		if p.Phone != nil && stripSpaces(*p.Phone) == want {
			return p, nil
		}
	}
	return model.Person{}, ErrNotFound
}

func (s *MemoryStore) FindAll(_ context.Context) ([]model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(), nil
}

func (s *MemoryStore) Search(_ context.Context, criteria model.SearchCriteria) ([]model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []model.Person{}
	for _, p := range s.sorted() {
		if matches(p, criteria) {
			result = append(result, p)
		}
	}
	return result, nil
}

// sorted must be called with s.mu held.
func (s *MemoryStore) sorted() []model.Person {
	persons := make([]model.Person, 0, len(s.persons))
	for _, p := range s.persons {
		persons = append(persons, clonePerson(p))
	}
	sort.Slice(persons, func(i, j int) bool { return persons[i].Id < persons[j].Id })
	return persons
}

func matches(p model.Person, c model.SearchCriteria) bool {
	if c.LastName != "" && !containsFold(p.LastName, c.LastName) {
		return false
	}
	if c.FirstName != "" && !containsFold(p.FirstName, c.FirstName) {
		return false
	}
	if c.Phone != "" && !strings.Contains(model.StringValue(p.Phone), c.Phone) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// clonePerson copies the pointer fields so that callers cannot change stored records.
func clonePerson(p model.Person) model.Person {
	if p.BirthDate != nil {
		d := *p.BirthDate
		p.BirthDate = &d
	}
	if p.Address != nil {
		a := *p.Address
		p.Address = &a
	}
	if p.Phone != nil {
		ph := *p.Phone
		p.Phone = &ph
	}
	return p
}

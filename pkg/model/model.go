package model

// Person is the data structure for a person listed in the directory. The JSON names are the
// ones the backend speaks on the wire, for REST payloads and GraphQL selections alike.
//
// The Id field is zero for drafts that have not been persisted yet. LastName and FirstName are
// required; all other fields are optional. Phone always holds the canonical 9 digit form.
type Person struct {
	Id        int64   `json:"id,omitempty"            db:"id"`
	LastName  string  `json:"nom"                     db:"nom"`
	FirstName string  `json:"prenom"                  db:"prenom"`
	BirthDate *Date   `json:"dateNaissance,omitempty" db:"date_naissance"`
	Address   *string `json:"adresse,omitempty"       db:"adresse"`
	Phone     *string `json:"telephone,omitempty"     db:"telephone"`
}

// Persisted reports whether the person has been assigned an id by the backend.
func (p Person) Persisted() bool {
	return p.Id != 0
}

// SearchCriteria holds the optional substring filters of a directory search. Empty strings
// mean "no filter". The backend combines the filters with AND.
type SearchCriteria struct {
	LastName  string `json:"nom,omitempty"`
	FirstName string `json:"prenom,omitempty"`
	Phone     string `json:"telephone,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (c SearchCriteria) IsEmpty() bool {
	return c.LastName == "" && c.FirstName == "" && c.Phone == ""
}

// StringPtr returns a pointer to s, or nil if s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning the empty string for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Package gateway provides the client side of the backend: REST for mutations and GraphQL for
// list and search queries. Both adapters are built around an injected *http.Client so that
// callers and tests decide on the transport.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/dirk.krummacker/person-directory/internal/phone"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// Mutator creates, updates and deletes persons.
type Mutator interface {
	Create(ctx context.Context, p model.Person) (model.Person, error)
	Update(ctx context.Context, id int64, p model.Person) (model.Person, error)
	DeleteByID(ctx context.Context, id int64) error
}

// Querier lists and searches persons. Results are always fetched from the network.
type Querier interface {
	ListAll(ctx context.Context) ([]model.Person, error)
	Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Person, error)
}

// Gateway is the full backend contract.
type Gateway interface {
	Mutator
	Querier
}

// FallbackMessage is shown when a failure carries no message from the backend.
const FallbackMessage = "an unexpected error occurred"

// GatewayError is a failure reported by the backend. Status is the HTTP status code of the
// exchange.
type GatewayError struct {
	Op      string
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

// NetworkError is a failure to reach the backend or to read its answer.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UserMessage extracts the text to show to the user for err.
func UserMessage(err error) string {
	var gerr *GatewayError
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return FallbackMessage
}

// canonicalize makes sure the phone of p is in canonical form. Older records may have been
// stored with separators ("77 123 45 67").
func canonicalize(p model.Person) model.Person {
	if p.Phone != nil {
		p.Phone = model.StringPtr(phone.ToCanonical(*p.Phone))
	}
	return p
}

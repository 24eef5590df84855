package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

const personSelection = `{ id nom prenom dateNaissance adresse telephone }`

// AllPersonsQuery lists every person.
const AllPersonsQuery = `query AllPersonnes { allPersonnes ` + personSelection + ` }`

// SearchPersonsQuery filters persons with optional substring arguments.
const SearchPersonsQuery = `query SearchPersonnes($nom: String, $prenom: String, $telephone: String) { ` +
	`searchPersonnes(nom: $nom, prenom: $prenom, telephone: $telephone) ` + personSelection + ` }`

// GraphQLRequest is the body of a GraphQL call over HTTP.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GraphQLError is one entry of the "errors" list of a GraphQL answer.
type GraphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []GraphQLError             `json:"errors"`
}

// wirePerson accepts ids sent as JSON strings, which is how GraphQL serializes the ID type.
type wirePerson struct {
	Id json.Number `json:"id"`
	model.Person
}

// GraphQLClient implements Querier against a GraphQL endpoint. It keeps no cache: every call
// is a network round trip.
type GraphQLClient struct {
	endpoint string
	t        transport
}

// NewGraphQLClient returns a client for the GraphQL endpoint.
func NewGraphQLClient(endpoint string, httpClient *http.Client, logger *zap.Logger, metrics *Metrics) *GraphQLClient {
	return &GraphQLClient{
		endpoint: endpoint,
		t:        newTransport(httpClient, logger, metrics),
	}
}

// ListAll runs the allPersonnes query.
func (c *GraphQLClient) ListAll(ctx context.Context) ([]model.Person, error) {
	req := GraphQLRequest{Query: AllPersonsQuery, OperationName: "AllPersonnes"}
	return c.persons(ctx, "list", "allPersonnes", req)
}

// Search runs the searchPersonnes query. Empty criteria are sent as null.
func (c *GraphQLClient) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Person, error) {
	req := GraphQLRequest{
		Query:         SearchPersonsQuery,
		OperationName: "SearchPersonnes",
		Variables: map[string]any{
			"nom":       nullable(criteria.LastName),
			"prenom":    nullable(criteria.FirstName),
			"telephone": nullable(criteria.Phone),
		},
	}
	return c.persons(ctx, "search", "searchPersonnes", req)
}

// persons records the outcome itself: an OK answer carrying GraphQL errors is a rejection.
func (c *GraphQLClient) persons(ctx context.Context, op, field string, req GraphQLRequest) (_ []model.Person, err error) {
	start := time.Now()
	defer func() { c.t.metrics.observe(op, err, time.Since(start)) }()

	var res graphQLResponse
	if err := c.t.send(ctx, op, http.MethodPost, c.endpoint, req, &res); err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, &GatewayError{Op: op, Status: http.StatusOK, Message: res.Errors[0].Message}
	}
	raw, ok := res.Data[field]
	if !ok {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("response has no %q field", field)}
	}
	var wire []wirePerson
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("could not unmarshal %s: %w", field, err)}
	}
	persons := make([]model.Person, 0, len(wire))
	for _, w := range wire {
		p := w.Person
		if w.Id != "" {
			id, err := w.Id.Int64()
			if err != nil {
				return nil, &NetworkError{Op: op, Err: fmt.Errorf("invalid id %q: %w", w.Id, err)}
			}
			p.Id = id
		}
		persons = append(persons, canonicalize(p))
	}
	return persons, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

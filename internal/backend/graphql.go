package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

var errUnexpected = errors.New("an unexpected error occurred")

// newPersonType resolves every field from a model.Person source. Ids are serialized as strings.
// Each schema gets its own type since graphql-go initializes object fields lazily.
func newPersonType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Personne",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return strconv.FormatInt(p.Source.(model.Person).Id, 10), nil
				},
			},
			"nom": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(model.Person).LastName, nil
				},
			},
			"prenom": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(model.Person).FirstName, nil
				},
			},
			"dateNaissance": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					d := p.Source.(model.Person).BirthDate
					if d == nil || d.IsZero() {
						return nil, nil
					}
					return d.String(), nil
				},
			},
			"adresse": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return optional(p.Source.(model.Person).Address), nil
				},
			},
			"telephone": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return optional(p.Source.(model.Person).Phone), nil
				},
			},
		},
	})
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// newSchema builds the query type on top of the handler's service:
//
//	type Query {
//	  allPersonnes: [Personne!]!
//	  personneById(id: ID!): Personne
//	  searchPersonnes(nom: String, prenom: String, telephone: String): [Personne!]!
//	}
func (h *handler) newSchema() (graphql.Schema, error) {
	personType := newPersonType()
	personList := graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(personType)))
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"allPersonnes": &graphql.Field{
				Type: personList,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					persons, err := h.service.FindAll(p.Context)
					return persons, h.graphQLError("allPersonnes", err)
				},
			},
			"personneById": &graphql.Field{
				Type: personType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw, _ := p.Args["id"].(string)
					id, err := strconv.ParseInt(raw, 10, 64)
					if err != nil {
						return nil, fmt.Errorf("invalid id %q", raw)
					}
					person, err := h.service.FindByID(p.Context, id)
					if err != nil {
						return nil, h.graphQLError("personneById", err)
					}
					return person, nil
				},
			},
			"searchPersonnes": &graphql.Field{
				Type: personList,
				Args: graphql.FieldConfigArgument{
					"nom":       &graphql.ArgumentConfig{Type: graphql.String},
					"prenom":    &graphql.ArgumentConfig{Type: graphql.String},
					"telephone": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					persons, err := h.service.Search(p.Context, model.SearchCriteria{
						LastName:  stringArg(p.Args, "nom"),
						FirstName: stringArg(p.Args, "prenom"),
						Phone:     stringArg(p.Args, "telephone"),
					})
					return persons, h.graphQLError("searchPersonnes", err)
				},
			},
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// graphQLError hides internal failures behind a generic message. Rule and not-found errors are
// passed on as they are.
func (h *handler) graphQLError(field string, err error) error {
	if err == nil {
		return nil
	}
	if statusOf(err) == http.StatusInternalServerError {
		h.logger.Error("graphql query failed", zap.String("field", field), zap.Error(err))
		return errUnexpected
	}
	return err
}

// graphql answers a GraphQL query. Like every GraphQL server it responds OK and reports
// failures in the "errors" list.
//
// Example call:
//
//	> curl http://localhost:8080/graphql --header "Content-Type: application/json" --data '{"query": "{ searchPersonnes(nom: \"diop\") { id nom } }"}'
func (h *handler) graphql(c *gin.Context) {
	var req graphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": []gqlerrors.FormattedError{{Message: "invalid GraphQL request"}}})
		return
	}
	h.logger.Debug("graphql query", zap.String("operation", req.OperationName))

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        c.Request.Context(),
	})
	c.JSON(http.StatusOK, result)
}

// stringArg returns the argument as a string; nil and missing arguments are empty.
func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

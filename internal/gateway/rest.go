package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// RESTClient implements Mutator against the REST resource, e.g.
// http://localhost:8080/api/personnes.
type RESTClient struct {
	base string
	t    transport
}

// NewRESTClient returns a client for the REST resource at base.
func NewRESTClient(base string, httpClient *http.Client, logger *zap.Logger, metrics *Metrics) *RESTClient {
	return &RESTClient{
		base: strings.TrimRight(base, "/"),
		t:    newTransport(httpClient, logger, metrics),
	}
}

// Create sends a POST with the person, phone in canonical form, and returns the stored record.
func (c *RESTClient) Create(ctx context.Context, p model.Person) (model.Person, error) {
	p = canonicalize(p)
	p.Id = 0
	var created model.Person
	if err := c.t.do(ctx, "create", http.MethodPost, c.base, p, &created); err != nil {
		return model.Person{}, err
	}
	return canonicalize(created), nil
}

// Update sends a PUT to /{id} and returns the stored record.
func (c *RESTClient) Update(ctx context.Context, id int64, p model.Person) (model.Person, error) {
	p = canonicalize(p)
	p.Id = id
	var updated model.Person
	if err := c.t.do(ctx, "update", http.MethodPut, c.itemURL(id), p, &updated); err != nil {
		return model.Person{}, err
	}
	return canonicalize(updated), nil
}

// DeleteByID sends a DELETE to /{id}.
func (c *RESTClient) DeleteByID(ctx context.Context, id int64) error {
	return c.t.do(ctx, "delete", http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *RESTClient) itemURL(id int64) string {
	return c.base + "/" + strconv.FormatInt(id, 10)
}

package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config locates the two backend endpoints.
type Config struct {
	RESTBase        string
	GraphQLEndpoint string
	Timeout         time.Duration
}

// Client bundles the REST and GraphQL adapters into a Gateway.
type Client struct {
	*RESTClient
	*GraphQLClient
	httpClient *http.Client
}

var _ Gateway = (*Client)(nil)

// New builds a Client sharing one *http.Client between both adapters.
func New(cfg Config, logger *zap.Logger, metrics *Metrics) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		RESTClient:    NewRESTClient(cfg.RESTBase, httpClient, logger, metrics),
		GraphQLClient: NewGraphQLClient(cfg.GraphQLEndpoint, httpClient, logger, metrics),
		httpClient:    httpClient,
	}
}

// CloseIdleConnections closes the kept-alive connections to the backend.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

package healthcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/t-botz/federation/internal/supergraph"
	"github.com/t-botz/federation/internal/transport"
)

// HealthCheckOperation is the operation name sent to every service.
const HealthCheckOperation = "__ApolloServiceHealthCheck__"

// HealthCheckQuery is the GraphQL document sent to every service. Any
// GraphQL server answers it without touching business resolvers.
const HealthCheckQuery = "query " + HealthCheckOperation + " { __typename }"

// Prober checks that one service is reachable and speaks GraphQL.
// Implementations must be safe for concurrent use.
type Prober interface {
	Probe(ctx context.Context, svc supergraph.Service) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, svc supergraph.Service) error

// Probe calls f(ctx, svc).
func (f ProberFunc) Probe(ctx context.Context, svc supergraph.Service) error {
	return f(ctx, svc)
}

type graphQLRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// HTTPProber sends the health check query to a service over HTTP.
type HTTPProber struct {
	client *transport.Client
}

// NewHTTPProber returns a Prober using client.
func NewHTTPProber(client *transport.Client) *HTTPProber {
	if client == nil {
		client = transport.NewClient(0)
	}
	return &HTTPProber{client: client}
}

// Probe fails on transport errors, non-2xx answers, GraphQL errors, and
// responses without data.
func (p *HTTPProber) Probe(ctx context.Context, svc supergraph.Service) error {
	ctx, span := tracer.Start(ctx, "healthcheck.Probe",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("healthcheck.service", svc.Name),
			attribute.String("healthcheck.url", svc.URL),
		))
	defer span.End()

	err := p.probe(ctx, svc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
	}
	return err
}

func (p *HTTPProber) probe(ctx context.Context, svc supergraph.Service) error {
	if svc.URL == "" {
		return errors.New("service has no url")
	}

	header := http.Header{}
	header.Set("X-Request-Id", uuid.NewString())

	var resp graphQLResponse
	req := graphQLRequest{Query: HealthCheckQuery, OperationName: HealthCheckOperation}
	if err := p.client.PostJSON(ctx, svc.URL, header, req, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("service answered with errors: %s", strings.Join(msgs, "; "))
	}
	if len(resp.Data) == 0 || bytes.Equal(bytes.TrimSpace(resp.Data), []byte("null")) {
		return errors.New("service answered without data")
	}
	return nil
}

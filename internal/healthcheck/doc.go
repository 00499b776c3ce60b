// Package healthcheck probes the services named by a supergraph.
//
// Two consumers share the same Prober:
//
//   - Gate runs once per candidate supergraph, before a producer pushes it.
//     Every service is probed in parallel and the candidate is rejected when
//     any probe fails. The returned *Error lists all failing services.
//
//   - Monitor runs continuously against the active supergraph and only
//     reports. It keeps a per-service record with consecutive failure counts
//     and fires a callback when a service crosses the unhealthy threshold.
//
// HTTPProber sends the GraphQL operation
//
//	query __ApolloServiceHealthCheck__ { __typename }
//
// which any GraphQL server can answer without touching business resolvers.
package healthcheck

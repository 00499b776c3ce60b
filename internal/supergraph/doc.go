// Package supergraph holds the value types shared by every part of the gateway
// control plane: the supergraph definition text, its content fingerprint, and
// the servable schema produced by composing it.
//
// # Overview
//
// A supergraph is a single GraphQL SDL document that describes the composed
// schema of every backend service (subgraph) together with the routing
// information the gateway needs to reach them. In the join spec, the services
// are the values of the join__Graph enum:
//
//	enum join__Graph {
//	  ACCOUNTS @join__graph(name: "accounts", url: "http://accounts:4001/graphql")
//	  PRODUCTS @join__graph(name: "products", url: "http://products:4002/graphql")
//	}
//
// The package never mutates a definition. A definition is replaced wholesale
// when a newer one is accepted by the coordinator.
//
// # Composition Identity
//
// Identify computes a CompositionID, the lower-case hex SHA-256 digest of the
// exact definition text:
//
//	id := supergraph.Identify(sdl)
//	// "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
//
// Equal text always yields the same id, so ids double as change-detection keys
// (a pushed definition with the active id is a no-op) and as version markers
// exposed to operators.
//
// # Composition
//
// Composer turns text into a *Schema. GQLComposer uses gqlparser to parse and
// validate the document; structural problems (unknown types, bad interface
// implementations, undefined directives) come back as a *CompositionError
// carrying every reported gqlerror.
//
// ParseServices is the cheap path used by the health check gate: it only parses
// the document and reads the join__Graph enum, without validating the rest of
// the schema.
//
// # See Also
//
//   - internal/coordinator: owns the active Schema
//   - internal/healthcheck: probes the services a definition references
package supergraph

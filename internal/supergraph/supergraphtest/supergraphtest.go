// Package supergraphtest builds supergraph definitions for tests.
package supergraphtest

import (
	"fmt"
	"strings"

	"github.com/t-botz/federation/internal/supergraph"
)

// Invalid is a definition that parses but fails schema validation.
const Invalid = `type Query {
  broken: UnknownType
}
`

// Build returns a valid supergraph referencing services, with one Query
// field per entry in fields (a single "hello" field when fields is empty).
func Build(services []supergraph.Service, fields ...string) string {
	if len(fields) == 0 {
		fields = []string{"hello"}
	}

	var b strings.Builder
	if len(services) > 0 {
		b.WriteString("directive @join__graph(name: String!, url: String!) on ENUM_VALUE\n\n")
		b.WriteString("enum join__Graph {\n")
		for _, svc := range services {
			fmt.Fprintf(&b, "  %s @join__graph(name: %q, url: %q)\n", strings.ToUpper(svc.Name), svc.Name, svc.URL)
		}
		b.WriteString("}\n\n")
	}
	b.WriteString("type Query {\n")
	for _, field := range fields {
		fmt.Fprintf(&b, "  %s: String\n", field)
	}
	b.WriteString("}\n")
	return b.String()
}

// Services is a shorthand for building a service list from name/url pairs.
func Services(pairs ...string) []supergraph.Service {
	out := make([]supergraph.Service, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, supergraph.Service{Name: pairs[i], URL: pairs[i+1]})
	}
	return out
}

package supergraph

import (
	"errors"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"golang.org/x/exp/slices"
)

const (
	// GraphEnum is the enum whose values name the subgraphs of a supergraph.
	GraphEnum = "join__Graph"
	// GraphDirective carries the name and routing url of one subgraph.
	GraphDirective = "join__graph"

	sourceName = "supergraph.graphql"
)

// Service is a backend service (subgraph) referenced by a supergraph.
type Service struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Schema is a composed, servable supergraph.
// Values are immutable once returned by a Composer.
type Schema struct {
	ID         CompositionID
	Definition string
	AST        *ast.Schema
	Services   []Service
}

// Composer validates a definition text and builds a servable Schema.
// Implementations must be safe for concurrent use.
type Composer interface {
	Compose(definition string) (*Schema, error)
}

// ComposerFunc adapts a function to the Composer interface.
type ComposerFunc func(definition string) (*Schema, error)

// Compose calls f(definition).
func (f ComposerFunc) Compose(definition string) (*Schema, error) {
	return f(definition)
}

// CompositionError reports the structural errors found in a definition.
type CompositionError struct {
	Errors gqlerror.List
}

func (e *CompositionError) Error() string {
	if len(e.Errors) == 0 {
		return "supergraph composition failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return "supergraph composition failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual gqlerrors to errors.Is and errors.As.
func (e *CompositionError) Unwrap() []error {
	out := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		out = append(out, err)
	}
	return out
}

// GQLComposer composes definitions with gqlparser's schema loader, which
// parses the SDL, merges it with the GraphQL prelude and validates it.
type GQLComposer struct{}

// NewGQLComposer returns the default Composer.
func NewGQLComposer() *GQLComposer {
	return &GQLComposer{}
}

// Compose parses and validates definition.
// On failure the returned error is a *CompositionError.
func (c *GQLComposer) Compose(definition string) (*Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: sourceName, Input: definition})
	if err != nil {
		return nil, newCompositionError(err)
	}

	var services []Service
	if enum, ok := schema.Types[GraphEnum]; ok && enum.Kind == ast.Enum {
		found, serr := servicesFromEnum(enum)
		if serr != nil {
			return nil, newCompositionError(serr)
		}
		services = found
	}

	return &Schema{
		ID:         Identify(definition),
		Definition: definition,
		AST:        schema,
		Services:   services,
	}, nil
}

// ParseServices returns the distinct services referenced by definition,
// sorted by name. Only the syntax of the document is checked.
func ParseServices(definition string) ([]Service, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: sourceName, Input: definition})
	if err != nil {
		return nil, newCompositionError(err)
	}

	var services []Service
	for _, defs := range []ast.DefinitionList{doc.Definitions, doc.Extensions} {
		for _, def := range defs {
			if def.Kind != ast.Enum || def.Name != GraphEnum {
				continue
			}
			found, serr := servicesFromEnum(def)
			if serr != nil {
				return nil, newCompositionError(serr)
			}
			services = append(services, found...)
		}
	}
	return dedupeServices(services), nil
}

func servicesFromEnum(enum *ast.Definition) ([]Service, error) {
	services := make([]Service, 0, len(enum.EnumValues))
	for _, value := range enum.EnumValues {
		dir := value.Directives.ForName(GraphDirective)
		if dir == nil {
			continue
		}
		svc := Service{Name: strings.ToLower(value.Name)}
		if arg := dir.Arguments.ForName("name"); arg != nil && arg.Value != nil && arg.Value.Raw != "" {
			svc.Name = arg.Value.Raw
		}
		if arg := dir.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			svc.URL = arg.Value.Raw
		}
		if svc.URL == "" {
			return nil, gqlerror.ErrorPosf(value.Position,
				"enum value %s.%s has no url in @%s", enum.Name, value.Name, GraphDirective)
		}
		services = append(services, svc)
	}
	return dedupeServices(services), nil
}

// dedupeServices sorts by name and keeps the first entry for each name.
func dedupeServices(services []Service) []Service {
	slices.SortStableFunc(services, func(a, b Service) int {
		return strings.Compare(a.Name, b.Name)
	})
	return slices.CompactFunc(services, func(a, b Service) bool {
		return a.Name == b.Name
	})
}

func newCompositionError(err error) *CompositionError {
	var list gqlerror.List
	if errors.As(err, &list) {
		return &CompositionError{Errors: list}
	}
	var single *gqlerror.Error
	if errors.As(err, &single) {
		return &CompositionError{Errors: gqlerror.List{single}}
	}
	return &CompositionError{Errors: gqlerror.List{gqlerror.Wrap(err)}}
}

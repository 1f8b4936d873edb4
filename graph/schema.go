package graph

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

//go:embed schema.graphqls
var schemaSource string

// executableSchema resolves operations against the Resolver. Field selection
// is applied to the JSON form of each resolved value, whose keys match the
// schema's field names.
//
// The embedded interface is left nil: the server enables no complexity
// limit, so Complexity is never called.
type executableSchema struct {
	graphql.ExecutableSchema

	schema   *ast.Schema
	resolver *Resolver
}

// NewExecutableSchema parses the embedded schema and binds it to r
func NewExecutableSchema(r *Resolver) (graphql.ExecutableSchema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSource})
	if err != nil {
		return nil, fmt.Errorf("failed to load graphql schema: %w", err)
	}
	return &executableSchema{schema: schema, resolver: r}, nil
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.schema
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	switch opCtx.Operation.Operation {
	case ast.Subscription:
		return e.subscribe(ctx, opCtx)
	case ast.Mutation:
		return graphql.OneShot(e.execute(ctx, opCtx, "Mutation"))
	default:
		return graphql.OneShot(e.execute(ctx, opCtx, "Query"))
	}
}

// execute resolves root fields in document order, which keeps mutations serial.
func (e *executableSchema) execute(ctx context.Context, opCtx *graphql.OperationContext, typeName string) *graphql.Response {
	var errs gqlerror.List
	out := object{}
	for _, f := range collectFields(opCtx, opCtx.Operation.SelectionSet) {
		key := responseKey(f)
		if f.Name == "__typename" {
			out = append(out, member{key, typeName})
			continue
		}
		value, err := e.resolve(ctx, typeName, f, f.ArgumentMap(opCtx.Variables))
		if err == nil {
			value, err = project(opCtx, value, f.SelectionSet)
		}
		if err != nil {
			gqlErr := gqlerror.Errorf("%s", err.Error())
			gqlErr.Path = ast.Path{ast.PathName(key)}
			errs = append(errs, gqlErr)
			value = nil
		}
		out = append(out, member{key, value})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return &graphql.Response{Errors: append(errs, gqlerror.Errorf("failed to encode response: %s", err))}
	}
	return &graphql.Response{Data: data, Errors: errs}
}

func (e *executableSchema) resolve(ctx context.Context, typeName string, f *ast.Field, args map[string]any) (any, error) {
	r := e.resolver
	switch typeName + "." + f.Name {
	case "Query.syncStatus":
		return r.SyncStatus(ctx), nil
	case "Query.pollerStatus":
		return r.PollerStatus(ctx), nil
	case "Query.summary":
		return r.Summary(ctx)
	case "Mutation.performSync":
		syncType, _ := args["type"].(string)
		return r.PerformSync(ctx, syncType), nil
	case "Mutation.checkForUpdates":
		return r.CheckForUpdates(ctx), nil
	}
	return nil, fmt.Errorf("field %s.%s is not supported", typeName, f.Name)
}

// subscribe streams one response per bus event until ctx is done
func (e *executableSchema) subscribe(ctx context.Context, opCtx *graphql.OperationContext) graphql.ResponseHandler {
	fields := collectFields(opCtx, opCtx.Operation.SelectionSet)
	if len(fields) != 1 || fields[0].Name != "events" {
		return graphql.OneShot(&graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("subscriptions must select the events field")}})
	}
	f := fields[0]

	channels, err := stringList(f.ArgumentMap(opCtx.Variables)["channels"])
	if err != nil {
		return graphql.OneShot(&graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%s", err.Error())}})
	}
	events, cancel, err := e.resolver.Events(channels)
	if err != nil {
		return graphql.OneShot(&graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%s", err.Error())}})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return func(ctx context.Context) *graphql.Response {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-events:
			value, err := project(opCtx, msg, f.SelectionSet)
			if err != nil {
				return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%s", err.Error())}}
			}
			data, err := json.Marshal(object{{responseKey(f), value}})
			if err != nil {
				return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("failed to encode event: %s", err)}}
			}
			return &graphql.Response{Data: data}
		}
	}
}

// project narrows value to the selected fields. Scalars are returned as is.
func project(opCtx *graphql.OperationContext, value any, set ast.SelectionSet) (any, error) {
	if len(set) == 0 {
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return shape(opCtx, generic, set), nil
}

func shape(opCtx *graphql.OperationContext, value any, set ast.SelectionSet) any {
	switch v := value.(type) {
	case map[string]any:
		out := object{}
		for _, f := range collectFields(opCtx, set) {
			key := responseKey(f)
			if f.Name == "__typename" {
				typeName := ""
				if f.ObjectDefinition != nil {
					typeName = f.ObjectDefinition.Name
				}
				out = append(out, member{key, typeName})
				continue
			}
			child := v[f.Name]
			if len(f.SelectionSet) > 0 {
				child = shape(opCtx, child, f.SelectionSet)
			}
			out = append(out, member{key, child})
		}
		return out
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = shape(opCtx, item, set)
		}
		return items
	default:
		return value
	}
}

// collectFields flattens fragments into the fields they select
func collectFields(opCtx *graphql.OperationContext, set ast.SelectionSet) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			fields = append(fields, s)
		case *ast.InlineFragment:
			fields = append(fields, collectFields(opCtx, s.SelectionSet)...)
		case *ast.FragmentSpread:
			if opCtx.Doc == nil {
				continue
			}
			if def := opCtx.Doc.Fragments.ForName(s.Name); def != nil {
				fields = append(fields, collectFields(opCtx, def.SelectionSet)...)
			}
		}
	}
	return fields
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func stringList(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", value)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

// object is a JSON object that keeps the order fields were selected in
type object []member

type member struct {
	key   string
	value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

package graph

import (
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
)

// NewHandler serves es over HTTP. Subscriptions use the graphql-ws
// websocket protocol or server-sent events.
func NewHandler(es graphql.ExecutableSchema) *handler.Server {
	srv := handler.New(es)
	srv.AddTransport(transport.Websocket{KeepAlivePingInterval: 10 * time.Second})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	// SSE must be checked before POST, both accept POST requests
	srv.AddTransport(transport.SSE{})
	srv.AddTransport(transport.POST{})
	return srv
}

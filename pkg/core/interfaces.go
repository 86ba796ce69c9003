// Package core defines the collaborator interfaces a rendered query is handed to
package core

import (
	"context"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
)

// Transport sends a rendered query request and collects the responses.
// Implementations own the network, authentication and any retry policy; the
// request is passed through unmodified.
type Transport interface {
	// RunQuery executes req and returns every response of the result stream
	RunQuery(ctx context.Context, req *firestorepb.RunQueryRequest) ([]*firestorepb.RunQueryResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *firestorepb.RunQueryRequest) ([]*firestorepb.RunQueryResponse, error)

// RunQuery calls f(ctx, req).
func (f TransportFunc) RunQuery(ctx context.Context, req *firestorepb.RunQueryRequest) ([]*firestorepb.RunQueryResponse, error) {
	return f(ctx, req)
}

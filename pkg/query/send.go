package query

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/theory-cloud/structuredquery/pkg/core"
	"github.com/theory-cloud/structuredquery/pkg/errors"
)

const opRunQuery = "run_query"

// Send renders q once and hands the request for parent to t unchanged.
// Failures are returned as *errors.QueryError matching errors.ErrTransport.
func Send(ctx context.Context, t core.Transport, parent string, q Query) ([]*firestorepb.RunQueryResponse, error) {
	if t == nil {
		return nil, errors.NewQueryError(opRunQuery, q.collection, fmt.Errorf("%w: no transport configured", errors.ErrTransport))
	}

	responses, err := t.RunQuery(ctx, q.RunQueryRequest(parent))
	if err != nil {
		return nil, errors.NewQueryError(opRunQuery, q.collection, fmt.Errorf("%w: %w", errors.ErrTransport, err))
	}
	return responses, nil
}

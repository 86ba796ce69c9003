package query

import (
	"context"
	stderrors "errors"
	"testing"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/structuredquery/pkg/core"
	"github.com/theory-cloud/structuredquery/pkg/errors"
)

const testParent = "projects/p/databases/(default)/documents"

func TestSend_PassesRequestThrough(t *testing.T) {
	q := Collection("users").Where(eq(t, "active", true)).Limit(3)

	var got *firestorepb.RunQueryRequest
	transport := core.TransportFunc(func(ctx context.Context, req *firestorepb.RunQueryRequest) ([]*firestorepb.RunQueryResponse, error) {
		got = req
		return []*firestorepb.RunQueryResponse{{SkippedResults: 1}}, nil
	})

	responses, err := Send(context.Background(), transport, testParent, q)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assertProtoEqual(t, q.RunQueryRequest(testParent), got)
}

func TestSend_WrapsTransportErrors(t *testing.T) {
	boom := stderrors.New("unavailable")
	transport := core.TransportFunc(func(context.Context, *firestorepb.RunQueryRequest) ([]*firestorepb.RunQueryResponse, error) {
		return nil, boom
	})

	_, err := Send(context.Background(), transport, testParent, Collection("users"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, errors.ErrTransport)

	var queryErr *errors.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "run_query", queryErr.Op)
	assert.Equal(t, "users", queryErr.Collection)
}

func TestSend_NilTransport(t *testing.T) {
	_, err := Send(context.Background(), nil, testParent, Collection("users"))
	assert.ErrorIs(t, err, errors.ErrTransport)
}

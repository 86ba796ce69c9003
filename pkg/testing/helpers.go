// Package testing provides fluent transport doubles for code that sends
// queries.
package testing

import (
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/mock"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/pkg/core"
	"github.com/theory-cloud/structuredquery/pkg/mocks"
	"github.com/theory-cloud/structuredquery/pkg/query"
)

// TestTransport provides a fluent interface for setting up transport expectations
type TestTransport struct {
	MockTransport *mocks.MockTransport
}

// NewTestTransport wraps a fresh mocks.MockTransport.
func NewTestTransport() *TestTransport {
	return &TestTransport{MockTransport: new(mocks.MockTransport)}
}

// Transport returns the mock as a core.Transport.
func (t *TestTransport) Transport() core.Transport {
	return t.MockTransport
}

// MatchRequest matches a *firestorepb.RunQueryRequest structurally equal to the
// request q renders under parent.
func MatchRequest(parent string, q query.Query) any {
	want := q.RunQueryRequest(parent)
	return mock.MatchedBy(func(req *firestorepb.RunQueryRequest) bool {
		return proto.Equal(want, req)
	})
}

// ExpectQuery sets up expectations for sending q once and receiving responses
func (t *TestTransport) ExpectQuery(parent string, q query.Query, responses ...*firestorepb.RunQueryResponse) *TestTransport {
	t.MockTransport.On("RunQuery", mock.Anything, MatchRequest(parent, q)).
		Return(responses, nil).Once()
	return t
}

// ExpectDocuments sets up expectations for q returning one response per document
func (t *TestTransport) ExpectDocuments(parent string, q query.Query, docs ...*firestorepb.Document) *TestTransport {
	return t.ExpectQuery(parent, q, DocumentResponses(docs...)...)
}

// ExpectQueryError sets up expectations for a failed send of q
func (t *TestTransport) ExpectQueryError(parent string, q query.Query, err error) *TestTransport {
	t.MockTransport.On("RunQuery", mock.Anything, MatchRequest(parent, q)).
		Return(nil, err).Once()
	return t
}

// ExpectAnyQuery accepts any request, any number of times
func (t *TestTransport) ExpectAnyQuery(responses ...*firestorepb.RunQueryResponse) *TestTransport {
	t.MockTransport.On("RunQuery", mock.Anything, mock.Anything).
		Return(responses, nil).Maybe()
	return t
}

// AssertExpectations asserts all expectations were met
func (t *TestTransport) AssertExpectations(tt mock.TestingT) bool {
	return t.MockTransport.AssertExpectations(tt)
}

// Document builds a document with the given resource name and fields.
func Document(name string, fields map[string]*firestorepb.Value) *firestorepb.Document {
	return &firestorepb.Document{Name: name, Fields: fields}
}

// DocumentResponses wraps each document in its own RunQueryResponse.
func DocumentResponses(docs ...*firestorepb.Document) []*firestorepb.RunQueryResponse {
	out := make([]*firestorepb.RunQueryResponse, len(docs))
	for i, doc := range docs {
		out[i] = &firestorepb.RunQueryResponse{Document: doc}
	}
	return out
}

// Package mocks provides mock implementations of the collaborator interfaces
// in pkg/core. They are built on github.com/stretchr/testify/mock.
//
// # Basic Usage
//
// Stub the transport and assert on the request a query renders to:
//
//	func TestListActiveUsers(t *testing.T) {
//	    transport := new(mocks.MockTransport)
//	    transport.On("RunQuery", mock.Anything, mock.MatchedBy(func(req *firestorepb.RunQueryRequest) bool {
//	        return req.GetStructuredQuery().GetFrom()[0].GetCollectionId() == "users"
//	    })).Return([]*firestorepb.RunQueryResponse{}, nil)
//
//	    _, err := query.Send(ctx, transport, parent, query.Collection("users"))
//	    require.NoError(t, err)
//	    transport.AssertExpectations(t)
//	}
//
// # Capturing Requests
//
// Use Run to capture the rendered request for detailed assertions:
//
//	var captured *firestorepb.RunQueryRequest
//	transport.On("RunQuery", mock.Anything, mock.Anything).
//	    Run(func(args mock.Arguments) {
//	        captured = args.Get(1).(*firestorepb.RunQueryRequest)
//	    }).
//	    Return(nil, nil)
package mocks

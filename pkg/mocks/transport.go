package mocks

import (
	"context"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/structuredquery/pkg/core"
)

func mustResponses(v any) []*firestorepb.RunQueryResponse {
	if v == nil {
		return nil
	}
	responses, ok := v.([]*firestorepb.RunQueryResponse)
	if !ok {
		panic("unexpected type: expected []*firestorepb.RunQueryResponse")
	}
	return responses
}

// MockTransport is a mock implementation of core.Transport.
type MockTransport struct {
	mock.Mock
}

var _ core.Transport = (*MockTransport)(nil)

// RunQuery records the call and returns the stubbed responses and error
func (m *MockTransport) RunQuery(ctx context.Context, req *firestorepb.RunQueryRequest) ([]*firestorepb.RunQueryResponse, error) {
	args := m.Called(ctx, req)
	return mustResponses(args.Get(0)), args.Error(1)
}

// NewMockTransport creates a MockTransport that asserts its expectations
// when the test finishes.
func NewMockTransport(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTransport {
	m := new(MockTransport)
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

package testing

import (
	"errors"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/structuredquery/pkg/query"
)

// ErrUnavailable is the error returned by SetupUnavailable.
var ErrUnavailable = errors.New("transport unavailable")

// CommonScenarios provides pre-built test scenarios
type CommonScenarios struct {
	transport *TestTransport
}

// NewCommonScenarios creates common test scenarios
func NewCommonScenarios(transport *TestTransport) *CommonScenarios {
	return &CommonScenarios{transport: transport}
}

// SetupEmptyResult answers q with a single response carrying no document,
// the shape of a query that matched nothing.
func (s *CommonScenarios) SetupEmptyResult(parent string, q query.Query) {
	s.transport.ExpectQuery(parent, q, &firestorepb.RunQueryResponse{})
}

// SetupSkipped answers q with a response reporting skipped results, as a
// query with an offset past every match does.
func (s *CommonScenarios) SetupSkipped(parent string, q query.Query, skipped int32) {
	s.transport.ExpectQuery(parent, q, &firestorepb.RunQueryResponse{SkippedResults: skipped})
}

// SetupPages answers each page query with its documents, in order. pages[i]
// pairs with docs[i].
func (s *CommonScenarios) SetupPages(parent string, pages []query.Query, docs [][]*firestorepb.Document) {
	for i, page := range pages {
		var pageDocs []*firestorepb.Document
		if i < len(docs) {
			pageDocs = docs[i]
		}
		s.transport.ExpectDocuments(parent, page, pageDocs...)
	}
}

// SetupUnavailable fails every request with ErrUnavailable.
func (s *CommonScenarios) SetupUnavailable() {
	s.transport.MockTransport.On("RunQuery", mock.Anything, mock.Anything).
		Return(nil, ErrUnavailable).Maybe()
}

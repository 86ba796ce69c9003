package query

import (
	"fmt"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

// DistanceMeasure selects how vector distance is computed in a nearest
// neighbour search.
type DistanceMeasure int

const (
	Euclidean DistanceMeasure = iota + 1
	Cosine
	DotProduct
)

var distanceMeasureWire = map[DistanceMeasure]firestorepb.StructuredQuery_FindNearest_DistanceMeasure{
	Euclidean:  firestorepb.StructuredQuery_FindNearest_EUCLIDEAN,
	Cosine:     firestorepb.StructuredQuery_FindNearest_COSINE,
	DotProduct: firestorepb.StructuredQuery_FindNearest_DOT_PRODUCT,
}

// Wire returns the protocol measure. It panics on an invalid measure.
func (m DistanceMeasure) Wire() firestorepb.StructuredQuery_FindNearest_DistanceMeasure {
	w, ok := distanceMeasureWire[m]
	if !ok {
		panic(fmt.Sprintf("query: invalid distance measure %d", int(m)))
	}
	return w
}

func (m DistanceMeasure) String() string {
	if w, ok := distanceMeasureWire[m]; ok {
		return w.String()
	}
	return fmt.Sprintf("DistanceMeasure(%d)", int(m))
}

// ParseDistanceMeasure resolves "EUCLIDEAN", "cosine", "dot-product" and so on.
func ParseDistanceMeasure(s string) (DistanceMeasure, error) {
	name := normalizeOperatorName(s)
	for m, w := range distanceMeasureWire {
		if normalizeOperatorName(w.String()) == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown distance measure %q", errors.ErrInvalidOperator, s)
}

// FindNearest configures a vector nearest neighbour search. The search runs
// after Where and before Limit.
type FindNearest struct {
	// DistanceThreshold drops results farther than this distance. For
	// DotProduct, results below it are dropped instead.
	DistanceThreshold *float64
	VectorField       FieldPath
	// DistanceResultField, when set, receives the computed distance in each
	// returned document.
	DistanceResultField string
	QueryVector         types.Vector
	Measure             DistanceMeasure
	// Limit is the number of neighbours to return, at most 1000.
	Limit int32
}

// StructuredQueryFindNearest renders n.
func (n FindNearest) StructuredQueryFindNearest() *firestorepb.StructuredQuery_FindNearest {
	// Vector.ToValue cannot fail.
	vector, _ := n.QueryVector.ToValue()

	out := &firestorepb.StructuredQuery_FindNearest{
		VectorField:         n.VectorField.FieldReference(),
		QueryVector:         vector,
		DistanceMeasure:     n.Measure.Wire(),
		Limit:               wrapperspb.Int32(n.Limit),
		DistanceResultField: n.DistanceResultField,
	}
	if n.DistanceThreshold != nil {
		out.DistanceThreshold = wrapperspb.Double(*n.DistanceThreshold)
	}
	return out
}

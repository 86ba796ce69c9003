package query

import (
	"testing"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/pkg/types"
)

func assertProtoEqual(t *testing.T, want, got proto.Message) {
	t.Helper()
	if !proto.Equal(want, got) {
		t.Errorf("message mismatch\nwant: %s\n got: %s", protojson.Format(want), protojson.Format(got))
	}
}

func wireFieldFilter(path string, op firestorepb.StructuredQuery_FieldFilter_Operator, v *firestorepb.Value) *firestorepb.StructuredQuery_Filter {
	return &firestorepb.StructuredQuery_Filter{
		FilterType: &firestorepb.StructuredQuery_Filter_FieldFilter{
			FieldFilter: &firestorepb.StructuredQuery_FieldFilter{
				Field: &firestorepb.StructuredQuery_FieldReference{FieldPath: path},
				Op:    op,
				Value: v,
			},
		},
	}
}

func eq(t *testing.T, field string, v any) Filter {
	t.Helper()
	f, err := NewFieldPath(field).EqualTo(types.Serialize(v))
	if err != nil {
		t.Fatalf("eq(%s): %v", field, err)
	}
	return f
}

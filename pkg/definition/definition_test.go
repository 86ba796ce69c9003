package definition

import (
	"testing"
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/query"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

const sampleDocument = `
version: "1"
parent: "projects/demo/databases/(default)/documents"
queries:
  - name: open_orders
    collection: orders
    select: [id, ["customer", "first name"]]
    where:
      and:
        - { field: status, op: "==", value: open }
        - { field: total, op: ">=", value: 100 }
        - { field: cancelled_at, op: is_null }
    order_by:
      - { field: total, direction: desc }
      - { field: id }
    start_after: [250, "ord-9"]
    limit: 20
    offset: 5
  - name: recent_comments
    collection_group: comments
    where:
      or:
        - { field: created, op: ">", value: { $timestamp: "2024-05-01T00:00:00Z" } }
        - { field: tags, op: array-contains-any, value: [urgent, flagged] }
    end_before: [{ $double: 3 }]
`

func requireProtoEqual(t *testing.T, want, got proto.Message) {
	t.Helper()
	require.Truef(t, proto.Equal(want, got), "want: %s\ngot: %s", protojson.Format(want), protojson.Format(got))
}

func TestParseDocumentAndFindQuery(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)
	require.Equal(t, "projects/demo/databases/(default)/documents", doc.Parent)
	require.Len(t, doc.Queries, 2)

	q, ok := FindQuery(doc, "recent_comments")
	require.True(t, ok)
	require.Equal(t, "comments", q.CollectionGroup)

	_, ok = FindQuery(doc, "missing")
	require.False(t, ok)
	_, ok = FindQuery(nil, "open_orders")
	require.False(t, ok)
}

func TestBuildOpenOrders(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)
	def, ok := FindQuery(doc, "open_orders")
	require.True(t, ok)

	got, err := def.Build(nil)
	require.NoError(t, err)

	status, err := query.NewFieldPath("status").EqualTo(types.Wire(types.String("open")))
	require.NoError(t, err)
	total, err := query.NewFieldPath("total").GreaterThanOrEqual(types.Wire(types.Integer(100)))
	require.NoError(t, err)

	want := query.Collection("orders").
		Select(query.Raw("id"), query.NewFieldPath("customer", "first name")).
		Where(query.And(status, total, query.Raw("cancelled_at").IsNull())).
		OrderBy(query.Raw("total").Descending(), query.Raw("id").Ascending()).
		StartAfter(types.Integer(250), types.String("ord-9")).
		Limit(20).
		Offset(5)

	requireProtoEqual(t, want.StructuredQuery(), got.StructuredQuery())
	require.Equal(t, "customer.`first name`", got.StructuredQuery().GetSelect().GetFields()[1].GetFieldPath())
}

func TestBuildTypedValues(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)
	def, _ := FindQuery(doc, "recent_comments")

	got, err := def.Build(types.NewConverter())
	require.NoError(t, err)
	sq := got.StructuredQuery()

	require.True(t, sq.GetFrom()[0].GetAllDescendants())
	operands := sq.GetWhere().GetCompositeFilter().GetFilters()
	require.Len(t, operands, 2)
	require.Equal(t, firestorepb.StructuredQuery_CompositeFilter_OR, sq.GetWhere().GetCompositeFilter().GetOp())

	created := operands[0].GetFieldFilter().GetValue().GetTimestampValue()
	require.NotNil(t, created)
	require.True(t, created.AsTime().Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	tags := operands[1].GetFieldFilter()
	require.Equal(t, firestorepb.StructuredQuery_FieldFilter_ARRAY_CONTAINS_ANY, tags.GetOp())
	requireProtoEqual(t, types.Array(types.String("urgent"), types.String("flagged")), tags.GetValue())

	end := sq.GetEndAt()
	require.True(t, end.GetBefore())
	requireProtoEqual(t, types.Double(3), end.GetValues()[0])
}

func TestBuildFindNearestAndTypedValues(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(`{
  "version": "1",
  "queries": [{
    "name": "similar",
    "collection": "docs",
    "select": [],
    "where": {"field": "owner", "op": "EQUAL", "value": {"$reference": "projects/p/databases/(default)/documents/users/u1"}},
    "end_at": [{"$geopoint": {"latitude": 1.5, "longitude": -2}}, {"$bytes": "aGk="}, null],
    "find_nearest": {
      "vector_field": "embedding",
      "query_vector": [0.5, 1],
      "distance_measure": "dot_product",
      "limit": 3,
      "distance_result_field": "score",
      "distance_threshold": 0.75
    }
  }]
}`))
	require.NoError(t, err)

	got, err := doc.Queries[0].Build(nil)
	require.NoError(t, err)
	sq := got.StructuredQuery()

	require.NotNil(t, sq.GetSelect())
	require.Empty(t, sq.GetSelect().GetFields())
	require.Equal(t, "projects/p/databases/(default)/documents/users/u1", sq.GetWhere().GetFieldFilter().GetValue().GetReferenceValue())

	end := sq.GetEndAt()
	require.False(t, end.GetBefore())
	require.Len(t, end.GetValues(), 3)
	require.Equal(t, -2.0, end.GetValues()[0].GetGeoPointValue().GetLongitude())
	require.Equal(t, []byte("hi"), end.GetValues()[1].GetBytesValue())
	requireProtoEqual(t, types.Null(), end.GetValues()[2])

	fn := sq.GetFindNearest()
	require.Equal(t, firestorepb.StructuredQuery_FindNearest_DOT_PRODUCT, fn.GetDistanceMeasure())
	require.Equal(t, int32(3), fn.GetLimit().GetValue())
	require.Equal(t, "score", fn.GetDistanceResultField())
	require.Equal(t, 0.75, fn.GetDistanceThreshold().GetValue())
}

func TestParseDocumentRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unsupported version": `version: "9"
queries: [{name: a, collection: c}]`,
		"no queries": `version: "1"
queries: []`,
		"missing name": `version: "1"
queries: [{collection: c}]`,
		"both sources": `version: "1"
queries: [{name: a, collection: c, collection_group: g}]`,
		"no source": `version: "1"
queries: [{name: a}]`,
		"duplicate names": `version: "1"
queries: [{name: a, collection: c}, {name: a, collection: d}]`,
		"unknown operator": `version: "1"
queries: [{name: a, collection: c, where: {field: x, op: like, value: 1}}]`,
		"missing value": `version: "1"
queries: [{name: a, collection: c, where: {field: x, op: "=="}}]`,
		"unary with value": `version: "1"
queries: [{name: a, collection: c, where: {field: x, op: is_null, value: 1}}]`,
		"field and composite": `version: "1"
queries: [{name: a, collection: c, where: {field: x, op: is_nan, and: []}}]`,
		"composite with op": `version: "1"
queries: [{name: a, collection: c, where: {op: "==", or: []}}]`,
		"nested invalid": `version: "1"
queries: [{name: a, collection: c, where: {and: [{or: [{field: "", op: is_null}]}]}}]`,
		"bad direction": `version: "1"
queries: [{name: a, collection: c, order_by: [{field: x, direction: sideways}]}]`,
		"two start cursors": `version: "1"
queries: [{name: a, collection: c, start_at: [1], start_after: [2]}]`,
		"negative limit": `version: "1"
queries: [{name: a, collection: c, limit: -1}]`,
		"unknown key": `version: "1"
queries: [{name: a, collection: c, limitt: 1}]`,
		"bad path": `version: "1"
queries: [{name: a, collection: c, select: [{x: 1}]}]`,
		"find nearest without vector": `version: "1"
queries: [{name: a, collection: c, find_nearest: {vector_field: v, distance_measure: cosine, limit: 1}}]`,
		"non json value": `version: "1"
queries: [{name: a, collection: c, where: {field: t, op: "<", value: 2025-01-01T00:00:00Z}}]`,
		"malformed yaml": "version: [",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument([]byte(raw))
			require.Error(t, err)
			require.ErrorIs(t, err, errors.ErrInvalidDefinition)
			require.True(t, errors.IsInvalidDefinition(err))
		})
	}
}

func TestBuildRejectsBadTypedValues(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown typed value": `{field: x, op: "==", value: {$decimal: "1.0"}}`,
		"bad timestamp":       `{field: x, op: "==", value: {$timestamp: "yesterday"}}`,
		"bad bytes":           `{field: x, op: "==", value: {$bytes: "%%%"}}`,
		"bad vector":          `{field: x, op: "==", value: {$vector: [a]}}`,
	}

	for name, where := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := ParseDocument([]byte("version: \"1\"\nqueries: [{name: a, collection: c, where: " + where + "}]"))
			require.NoError(t, err)

			_, err = doc.Queries[0].Build(nil)
			require.ErrorIs(t, err, errors.ErrInvalidDefinition)
		})
	}
}

func TestBuildBareYAMLTimestamps(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(`version: "1"
queries:
  - name: daily
    collection: events
    where: {field: day, op: "==", value: 2024-01-02}
    start_at: [2024-05-01T10:30:00.5Z]
`))
	require.NoError(t, err)

	got, err := doc.Queries[0].Build(nil)
	require.NoError(t, err)

	day, err := query.Raw("day").EqualTo(types.Wire(types.Timestamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)
	want := query.Collection("events").
		Where(day).
		StartAt(types.Timestamp(time.Date(2024, 5, 1, 10, 30, 0, 500_000_000, time.UTC)))
	requireProtoEqual(t, want.StructuredQuery(), got.StructuredQuery())
}

func TestBuildRejectsIntegerOverflow(t *testing.T) {
	t.Parallel()

	for _, literal := range []string{"18446744073709551615", "18446744073709551616", "-9223372036854775809"} {
		t.Run(literal, func(t *testing.T) {
			doc, err := ParseDocument([]byte("version: \"1\"\nqueries: [{name: a, collection: c, where: {field: x, op: \"==\", value: " + literal + "}}]"))
			if err == nil {
				_, err = doc.Queries[0].Build(nil)
			}
			require.ErrorIs(t, err, errors.ErrInvalidDefinition)
			require.Contains(t, err.Error(), "out of range")
		})
	}

	for literal, want := range map[string]float64{"1.5e300": 1.5e300, "1e19": 1e19, "-1e19": -1e19} {
		doc, err := ParseDocument([]byte("version: \"1\"\nqueries: [{name: a, collection: c, where: {field: x, op: \"<\", value: " + literal + "}}]"))
		require.NoError(t, err)
		got, err := doc.Queries[0].Build(nil)
		require.NoError(t, err)
		requireProtoEqual(t, types.Double(want), got.StructuredQuery().GetWhere().GetFieldFilter().GetValue())
	}
}

func TestBuildPropagatesConversionErrors(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(`version: "1"
queries: [{name: a, collection: c, where: {field: x, op: "==", value: {$timestamp: "2024-01-01T00:00:00Z"}}}]`))
	require.NoError(t, err)

	conv := types.NewConverter()
	conv.RegisterConverter(timeType, types.ConverterFunc(func(any) (*firestorepb.Value, error) {
		return nil, errors.ErrUnsupportedType
	}))

	_, err = doc.Queries[0].Build(conv)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrValueConversion)
	require.Contains(t, err.Error(), "query a")
}

func TestPathUnmarshal(t *testing.T) {
	t.Parallel()

	var p Path
	require.NoError(t, p.UnmarshalJSON([]byte(`"a.b"`)))
	require.Equal(t, "a.b", p.FieldPath().String())
	require.Len(t, p.FieldPath().Segments(), 1)

	require.NoError(t, p.UnmarshalJSON([]byte(`["a", "b.c"]`)))
	require.Equal(t, "a.`b.c`", p.FieldPath().String())

	require.Error(t, p.UnmarshalJSON([]byte(`42`)))
}

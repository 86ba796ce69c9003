package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/pkg/errors"
	"github.com/theory-cloud/structuredquery/pkg/query"
	"github.com/theory-cloud/structuredquery/pkg/types"
)

const definitions = `
version: "1"
queries:
  - name: adults
    collection: users
    where: { field: age, op: ">=", value: 18 }
    order_by:
      - { field: age, direction: desc }
    limit: 10
  - name: tagged
    collection_group: posts
    select: [["meta", "tag list"]]
    where: { field: tags, op: array-contains, value: go }
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes the command tree with a quiet config and returns stdout.
func run(t *testing.T, config, stdin string, args ...string) (string, error) {
	t.Helper()
	if config == "" {
		config = "logging:\n  level: error\n"
	}

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", writeFile(t, "fsquery.yaml", config)}, args...))

	err := cmd.Execute()
	return out.String(), err
}

// decodeAll splits concatenated JSON messages and unmarshals each into a new M.
func decodeAll[M proto.Message](t *testing.T, out string, newMsg func() M) []M {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(out))
	var msgs []M
	for dec.More() {
		var raw json.RawMessage
		require.NoError(t, dec.Decode(&raw))
		m := newMsg()
		require.NoError(t, protojson.Unmarshal(raw, m))
		msgs = append(msgs, m)
	}
	return msgs
}

func requireProtoEqual(t *testing.T, want, got proto.Message) {
	t.Helper()
	require.Truef(t, proto.Equal(want, got), "want: %s\ngot: %s", protojson.Format(want), protojson.Format(got))
}

func adultsQuery(t *testing.T) query.Query {
	t.Helper()
	f, err := query.Raw("age").GreaterThanOrEqual(types.Wire(types.Integer(18)))
	require.NoError(t, err)
	return query.Collection("users").Where(f).OrderBy(query.Raw("age").Descending()).Limit(10)
}

func taggedQuery(t *testing.T) query.Query {
	t.Helper()
	f, err := query.Raw("tags").ArrayContains(types.Wire(types.String("go")))
	require.NoError(t, err)
	return query.CollectionGroup("posts").Select(query.NewFieldPath("meta", "tag list")).Where(f)
}

func TestRender_AllQueries(t *testing.T) {
	out, err := run(t, "", "", "render", "-f", writeFile(t, "defs.yaml", definitions))
	require.NoError(t, err)

	msgs := decodeAll(t, out, func() *firestorepb.StructuredQuery { return &firestorepb.StructuredQuery{} })
	require.Len(t, msgs, 2)
	requireProtoEqual(t, adultsQuery(t).StructuredQuery(), msgs[0])
	requireProtoEqual(t, taggedQuery(t).StructuredQuery(), msgs[1])
}

func TestRender_NamedQueryFromStdin(t *testing.T) {
	out, err := run(t, "", definitions, "render", "-f", "-", "-q", "tagged")
	require.NoError(t, err)

	msgs := decodeAll(t, out, func() *firestorepb.StructuredQuery { return &firestorepb.StructuredQuery{} })
	require.Len(t, msgs, 1)
	requireProtoEqual(t, taggedQuery(t).StructuredQuery(), msgs[0])
}

func TestRender_CompactOutput(t *testing.T) {
	out, err := run(t, "logging:\n  level: error\noutput:\n  compact: true\n", definitions, "render", "-f", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
}

func TestRender_RequestParent(t *testing.T) {
	const fromConfig = "projects/cfg/databases/(default)/documents"
	const fromDoc = "projects/doc/databases/(default)/documents"
	const fromFlag = "projects/flag/databases/(default)/documents"
	withParent := strings.Replace(definitions, `version: "1"`, `version: "1"`+"\nparent: \""+fromDoc+"\"", 1)
	config := "project: cfg\nlogging:\n  level: error\n"

	tests := []struct {
		name string
		defs string
		args []string
		want string
	}{
		{name: "config", defs: definitions, want: fromConfig},
		{name: "document", defs: withParent, want: fromDoc},
		{name: "flag", defs: withParent, args: []string{"--parent", fromFlag}, want: fromFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"render", "-f", "-", "-q", "adults", "--request"}, tt.args...)
			out, err := run(t, config, tt.defs, args...)
			require.NoError(t, err)

			msgs := decodeAll(t, out, func() *firestorepb.RunQueryRequest { return &firestorepb.RunQueryRequest{} })
			require.Len(t, msgs, 1)
			requireProtoEqual(t, adultsQuery(t).RunQueryRequest(tt.want), msgs[0])
		})
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := run(t, "", definitions, "render", "-f", "-", "--request")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a parent")

	_, err = run(t, "", definitions, "render", "-f", "-", "-q", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `query "missing" not found`)

	_, err = run(t, "", "version: \"2\"\nqueries: []\n", "render", "-f", "-")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)

	_, err = run(t, "", "", "render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"file" not set`)

	_, err = run(t, "", "", "render", "-f", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestRender_BadTypedValue(t *testing.T) {
	defs := `
version: "1"
queries:
  - name: bad
    collection: users
    where: { field: born, op: "<", value: { $timestamp: "yesterday" } }
`
	_, err := run(t, "", defs, "render", "-f", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query bad")
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)
}

func TestFieldPath(t *testing.T) {
	out, err := run(t, "", "", "field-path", "user", "first name")
	require.NoError(t, err)
	assert.Equal(t, "user.`first name`\n", out)

	out, err = run(t, "", "", "field-path", "--raw", "a.b")
	require.NoError(t, err)
	assert.Equal(t, "a.b\n", out)

	out, err = run(t, "", "", "field-path", "--json", "x", "1y")
	require.NoError(t, err)
	var ref firestorepb.StructuredQuery_FieldReference
	require.NoError(t, protojson.Unmarshal([]byte(out), &ref))
	assert.Equal(t, "x.`1y`", ref.GetFieldPath())

	_, err = run(t, "", "", "field-path", "--raw", "a", "b")
	require.Error(t, err)

	_, err = run(t, "", "", "field-path")
	require.Error(t, err)
}

func TestCursorRoundTrip(t *testing.T) {
	want := &firestorepb.Cursor{Values: []*firestorepb.Value{types.Integer(42), types.String("ord-9")}, Before: true}
	data, err := protojson.Marshal(want)
	require.NoError(t, err)

	out, err := run(t, "", "", "cursor", "encode", string(data))
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	expected, err := query.EncodeCursor(want)
	require.NoError(t, err)
	assert.Equal(t, expected, token)

	out, err = run(t, "", string(data), "cursor", "encode")
	require.NoError(t, err)
	assert.Equal(t, token, strings.TrimSpace(out))

	out, err = run(t, "", "", "cursor", "decode", token)
	require.NoError(t, err)
	var got firestorepb.Cursor
	require.NoError(t, protojson.Unmarshal([]byte(out), &got))
	requireProtoEqual(t, want, &got)
}

func TestCursorErrors(t *testing.T) {
	_, err := run(t, "", "", "cursor", "encode", "{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse cursor")

	_, err = run(t, "", "", "cursor", "decode", "!!!")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidCursor)
}

func TestCursorDecodeEmpty(t *testing.T) {
	out, err := run(t, "", "", "cursor", "decode", "")
	require.NoError(t, err)
	assert.Equal(t, "{}", strings.TrimSpace(out))
}

func TestRootSetupErrors(t *testing.T) {
	_, err := run(t, "logging:\n  env: staging\n", "", "field-path", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	_, err = run(t, "", "", "--log-level", "loud", "field-path", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

package query

import (
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/proto"

	"github.com/theory-cloud/structuredquery/pkg/errors"
)

// EncodeCursor encodes a cursor into an opaque URL-safe token suitable for
// handing to API clients. A nil cursor encodes to "". A cursor with no values
// keeps its before flag; only the all-zero cursor shares the "" token.
func EncodeCursor(c *firestorepb.Cursor) (string, error) {
	if c == nil {
		return "", nil
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeCursor reverses EncodeCursor. An empty token decodes to a nil cursor.
func DecodeCursor(encoded string) (*firestorepb.Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode cursor: %v", errors.ErrInvalidCursor, err)
	}

	var cursor firestorepb.Cursor
	if err := proto.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal cursor: %v", errors.ErrInvalidCursor, err)
	}

	return &cursor, nil
}

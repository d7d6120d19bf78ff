package ports

import (
	"context"

	"profiledir/internal/types"
)

// Operator is a DocStore query operator.
type Operator string

const (
	// Equals matches documents whose field equals the value.
	Equals Operator = "=="
	// ArrayContains matches documents whose array field contains the value.
	ArrayContains Operator = "array-contains"
)

// Doc is one keyed document returned from a query.
type Doc struct {
	Key    string
	Fields types.Document
}

// DocStore is the durable key/value-with-query backend. It owns the truth;
// everything cached in-process is a disposable projection of it.
// Implementations MUST return (nil, nil) from Get when the document does not
// exist; absence is not an error at this layer.
type DocStore interface {
	Get(ctx context.Context, collection, key string) (types.Document, error)

	// Set writes fields under collection/key. With merge, only the provided
	// fields are touched; without, the document is replaced.
	Set(ctx context.Context, collection, key string, fields types.Document, merge bool) error

	Delete(ctx context.Context, collection, key string) error

	// Query returns every document in the collection matching field op value.
	// Only Equals and ArrayContains are supported.
	Query(ctx context.Context, collection, field string, op Operator, value any) ([]Doc, error)

	// All returns every document in the collection.
	All(ctx context.Context, collection string) ([]Doc, error)
}

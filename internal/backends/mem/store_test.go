package mem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profiledir/internal/ports"
	"profiledir/internal/types"
)

func TestSetGetDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	doc, err := s.Get(ctx, "c", "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, s.Set(ctx, "c", "k", types.Document{"a": "1"}, false))
	doc, err = s.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, "1", types.Str(doc, "a"))

	require.NoError(t, s.Delete(ctx, "c", "k"))
	doc, err = s.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, 0, s.Len("c"))
}

func TestMergeVersusReplace(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "c", "k", types.Document{"a": "1", "b": "2"}, false))
	require.NoError(t, s.Set(ctx, "c", "k", types.Document{"b": "3"}, true))
	doc, err := s.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, "1", types.Str(doc, "a"))
	assert.Equal(t, "3", types.Str(doc, "b"))

	require.NoError(t, s.Set(ctx, "c", "k", types.Document{"b": "4"}, false))
	doc, err = s.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.NotContains(t, doc, "a")
	assert.Equal(t, "4", types.Str(doc, "b"))
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "c", "k", types.Document{"tags": []string{"x"}}, false))
	doc, err := s.Get(ctx, "c", "k")
	require.NoError(t, err)

	// mutating the returned document must not leak into the store
	doc["extra"] = "oops"
	types.StrSlice(doc, "tags")[0] = "mutated"

	doc, err = s.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.NotContains(t, doc, "extra")
	assert.Equal(t, []string{"x"}, types.StrSlice(doc, "tags"))
}

func TestQuery(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "teams", "t1", types.Document{
		"captain": "cap",
		"team":    []string{"cap", "m1"},
	}, false))
	require.NoError(t, s.Set(ctx, "teams", "t2", types.Document{
		"captain": "other",
		"team":    []string{"other"},
	}, false))

	docs, err := s.Query(ctx, "teams", "captain", ports.Equals, "cap")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "t1", docs[0].Key)

	docs, err = s.Query(ctx, "teams", "team", ports.ArrayContains, "m1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "t1", docs[0].Key)

	docs, err = s.Query(ctx, "teams", "team", ports.ArrayContains, "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAllAndOps(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "c", "k1", types.Document{"a": "1"}, false))
	require.NoError(t, s.Set(ctx, "c", "k2", types.Document{"a": "2"}, false))

	docs, err := s.All(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// two sets plus the listing
	assert.Equal(t, int64(3), s.Ops())
}

package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	key string
	id  string
}

func (f *fakeEntry) LogicalKey() string { return f.key }
func (f *fakeEntry) OpaqueID() string   { return f.id }

func entry(n int) *fakeEntry {
	return &fakeEntry{key: fmt.Sprintf("user%d", n), id: fmt.Sprintf("id%d", n)}
}

func TestEvictsOldestPastCapacity(t *testing.T) {
	c := New[*fakeEntry](3)
	for i := 1; i <= 5; i++ {
		c.Put(entry(i))
	}

	require.Equal(t, 3, c.Len())

	// the three most recent survive, most recent first
	items := c.Items()
	require.Equal(t, "user5", items[0].key)
	require.Equal(t, "user4", items[1].key)
	require.Equal(t, "user3", items[2].key)

	_, ok := c.Find("user1", "")
	require.False(t, ok)
	_, ok = c.Find("user2", "")
	require.False(t, ok)
}

func TestFindPromotesToFront(t *testing.T) {
	c := New[*fakeEntry](3)
	for i := 1; i <= 3; i++ {
		c.Put(entry(i))
	}

	got, ok := c.Find("user1", "")
	require.True(t, ok)
	require.Equal(t, "user1", got.key)

	items := c.Items()
	require.Equal(t, "user1", items[0].key)
	require.Equal(t, "user3", items[1].key)
	require.Equal(t, "user2", items[2].key)

	// a promoted entry outlives an insert that evicts the new back
	c.Put(entry(4))
	_, ok = c.Find("user1", "")
	require.True(t, ok)
	_, ok = c.Find("user2", "")
	require.False(t, ok)
}

func TestFindMatchesEitherKey(t *testing.T) {
	c := New[*fakeEntry](3)
	c.Put(entry(1))

	byKey, ok := c.Find("user1", "")
	require.True(t, ok)
	require.Equal(t, "id1", byKey.id)

	byID, ok := c.Find("", "id1")
	require.True(t, ok)
	require.Equal(t, "user1", byID.key)

	// inclusive or: a wrong id does not block a key match
	either, ok := c.Find("user1", "nosuchid")
	require.True(t, ok)
	require.Equal(t, "user1", either.key)

	_, ok = c.Find("", "")
	require.False(t, ok)
}

func TestRemove(t *testing.T) {
	c := New[*fakeEntry](3)
	c.Put(entry(1))
	c.Put(entry(2))

	require.True(t, c.Remove("", "id1"))
	require.Equal(t, 1, c.Len())
	_, ok := c.Find("user1", "")
	require.False(t, ok)

	require.False(t, c.Remove("user1", ""))
}

func TestDefaultCapacity(t *testing.T) {
	c := New[*fakeEntry](0)
	for i := 0; i < DefaultCapacity+10; i++ {
		c.Put(entry(i))
	}
	require.Equal(t, DefaultCapacity, c.Len())
}

package cedar

import (
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	dbtesting "github.com/ValentinKolb/sKV/lib/db/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCedar(t *testing.T) (*cedarImpl, *dbtesting.ManualClock) {
	t.Helper()
	clock := dbtesting.NewManualClock(time.UnixMilli(1_000_000))
	c, ok := NewCedarDB(&DBOptions{Clock: clock.Now}).(*cedarImpl)
	require.True(t, ok)
	return c, clock
}

func TestNilOptions(t *testing.T) {
	c := NewCedarDB(nil)
	_, err := c.Set([]byte("k"), []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, db.ImplCedar, c.GetInfo().DbType)
}

func TestLazyExpiryDropsDeadline(t *testing.T) {
	c, clock := newCedar(t)

	c.Set([]byte("k"), []byte("v"))
	c.Expire([]byte("k"), time.Millisecond)
	assert.Equal(t, 1, c.ttl.Len())

	clock.Advance(time.Millisecond)
	_, ok, err := c.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 0, c.ttl.Len(), "a lazily expired key must not leave its deadline behind")
	assert.Equal(t, 0, c.data.Len())
}

func TestDeleteDropsDeadline(t *testing.T) {
	c, _ := newCedar(t)

	c.ZAdd([]byte("z"), 1, []byte("m"))
	c.Expire([]byte("z"), time.Minute)
	require.True(t, c.Delete([]byte("z")))

	assert.Equal(t, 0, c.ttl.Len())
	_, pending := c.NextExpiry()
	assert.False(t, pending)
}

func TestEmptiedZSetDropsDeadline(t *testing.T) {
	c, _ := newCedar(t)

	c.ZAdd([]byte("z"), 1, []byte("m"))
	c.Expire([]byte("z"), time.Minute)
	removed, err := c.ZRem([]byte("z"), []byte("m"))
	require.NoError(t, err)
	require.True(t, removed)

	assert.Equal(t, 0, c.ttl.Len())
	assert.Equal(t, db.TTLMissing, c.TTL([]byte("z")))
}

func TestExpireRefreshesDeadline(t *testing.T) {
	c, clock := newCedar(t)

	c.Set([]byte("k"), []byte("v"))
	c.Expire([]byte("k"), 10*time.Millisecond)
	c.Expire([]byte("k"), 100*time.Millisecond)
	assert.Equal(t, 1, c.ttl.Len())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, 0, c.ExpireDue(0))
	assert.EqualValues(t, 50, c.TTL([]byte("k")))
}

func TestInfoAndClose(t *testing.T) {
	c, _ := newCedar(t)

	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		c.Set(key, []byte("v"))
		if i%2 == 0 {
			c.Expire(key, time.Second)
		}
	}

	info := c.GetInfo()
	assert.Equal(t, 10, info.Keys)
	assert.Equal(t, 5, info.VolatileKey)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.GetInfo().VolatileKey)
}

func TestGetReturnsStoredValue(t *testing.T) {
	c, _ := newCedar(t)

	c.Set([]byte("k"), []byte("first"))
	v1, _, _ := c.Get([]byte("k"))
	c.Set([]byte("k"), []byte("second"))

	// the previous slice is not overwritten in place
	assert.Equal(t, "first", string(v1))
	v2, _, _ := c.Get([]byte("k"))
	assert.Equal(t, "second", string(v2))
}

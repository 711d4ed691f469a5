package cedar

import (
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/cedar/internal"
	"github.com/ValentinKolb/sKV/lib/db/hashtable"
	"github.com/ValentinKolb/sKV/lib/db/util"
	"github.com/ValentinKolb/sKV/lib/db/zset"
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	expiredKeysTotal = metrics.GetOrCreateCounter(`skv_db_expired_keys_total`)
	wrongTypeTotal   = metrics.GetOrCreateCounter(`skv_db_wrong_type_errors_total`)
)

// --------------------------------------------------------------------------
// Core database structure
// --------------------------------------------------------------------------

// cedarImpl implements db.KVDB on a single incrementally resizing hash table
type cedarImpl struct {
	data *hashtable.Map[*internal.Entry] // all keys
	ttl  *util.MapHeap                   // deadlines of volatile keys
	now  func() time.Time
}

// DBOptions configures the cedarImpl behavior during initialization
type DBOptions struct {
	Clock func() time.Time // Source of the current time (nil = time.Now)
}

// DefaultOptions returns the default cedarImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Clock: time.Now,
	}
}

// NewCedarDB creates a new, empty keyspace with the specified options (optional)
func NewCedarDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &cedarImpl{
		data: hashtable.New[*internal.Entry](),
		ttl:  util.NewMapHeap(),
		now:  clock,
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nowMs returns the current time in unix milliseconds
func (c *cedarImpl) nowMs() uint64 {
	return uint64(c.now().UnixMilli())
}

// lookup returns the live entry for key. A due entry is removed on the way.
func (c *cedarImpl) lookup(key []byte) *internal.Entry {
	e, ok := c.data.Get(key)
	if !ok {
		return nil
	}
	if e.IsExpired(c.nowMs()) {
		c.remove(key)
		expiredKeysTotal.Inc()
		return nil
	}
	return e
}

// lookupZSet returns the live sorted set entry of key or ErrWrongType
func (c *cedarImpl) lookupZSet(key []byte) (*internal.Entry, error) {
	e := c.lookup(key)
	if e != nil && e.Type != db.TypeZSet {
		wrongTypeTotal.Inc()
		return nil, db.ErrWrongType
	}
	return e, nil
}

// remove deletes key with its deadline
func (c *cedarImpl) remove(key []byte) bool {
	e, existed := c.data.Delete(key)
	if !existed {
		return false
	}
	if e.ExpireAt != 0 {
		c.ttl.RemoveByKey(string(key))
	}
	e.Release()
	return true
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - String Operations
// --------------------------------------------------------------------------

// Get retrieves the string value of key. The returned slice is owned by the
// database and must not be modified; it is valid until the next write to key.
func (c *cedarImpl) Get(key []byte) ([]byte, bool, error) {
	e := c.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	if e.Type != db.TypeString {
		wrongTypeTotal.Inc()
		return nil, false, db.ErrWrongType
	}
	return e.Str, true, nil
}

// Set stores a copy of value under key. An existing deadline is kept.
func (c *cedarImpl) Set(key, value []byte) (bool, error) {
	e := c.lookup(key)
	if e == nil {
		c.data.Set(key, internal.NewString(value))
		return false, nil
	}
	if e.Type != db.TypeString {
		wrongTypeTotal.Inc()
		return false, db.ErrWrongType
	}
	e.Str = append(e.Str[:0:0], value...)
	return true, nil
}

// Delete removes key
func (c *cedarImpl) Delete(key []byte) bool {
	if c.lookup(key) == nil {
		return false
	}
	return c.remove(key)
}

// Keys returns copies of all live keys
func (c *cedarImpl) Keys() [][]byte {
	now := c.nowMs()
	keys := make([][]byte, 0, c.data.Len())
	c.data.ForEach(func(key []byte, e *internal.Entry) bool {
		if !e.IsExpired(now) {
			keys = append(keys, append([]byte{}, key...))
		}
		return true
	})
	return keys
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Expiration
// --------------------------------------------------------------------------

// Expire sets or (for ttl < 0) removes the deadline of key
func (c *cedarImpl) Expire(key []byte, ttl time.Duration) bool {
	e := c.lookup(key)
	if e == nil {
		return false
	}

	if ttl < 0 {
		if e.ExpireAt != 0 {
			e.ExpireAt = 0
			c.ttl.RemoveByKey(string(key))
		}
		return true
	}

	e.ExpireAt = c.nowMs() + uint64(ttl.Milliseconds())
	c.ttl.AddItem(string(key), e.ExpireAt)
	return true
}

// TTL returns the remaining time to live of key in milliseconds
func (c *cedarImpl) TTL(key []byte) int64 {
	e := c.lookup(key)
	if e == nil {
		return db.TTLMissing
	}
	if e.ExpireAt == 0 {
		return db.TTLPersisted
	}
	now := c.nowMs()
	if e.ExpireAt <= now {
		return 0
	}
	return int64(e.ExpireAt - now)
}

// NextExpiry returns the earliest deadline
func (c *cedarImpl) NextExpiry() (time.Time, bool) {
	item, ok := c.ttl.Peek()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(item.Priority)), true
}

// ExpireDue removes up to max keys whose deadline passed
func (c *cedarImpl) ExpireDue(max int) int {
	keys := c.ttl.PopExpired(c.nowMs(), max)
	for _, key := range keys {
		// the deadline is already gone from the heap
		if e, existed := c.data.Delete([]byte(key)); existed {
			e.Release()
		}
	}
	expiredKeysTotal.Add(len(keys))
	return len(keys)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Sorted Sets
// --------------------------------------------------------------------------

// ZAdd inserts or re-scores name in the sorted set at key
func (c *cedarImpl) ZAdd(key []byte, score float64, name []byte) (bool, error) {
	e, err := c.lookupZSet(key)
	if err != nil {
		return false, err
	}
	if e == nil {
		e = internal.NewZSet()
		c.data.Set(key, e)
	}
	return e.ZSet.Insert(name, score), nil
}

// ZRem removes name from the sorted set at key and drops the key once the set is empty
func (c *cedarImpl) ZRem(key, name []byte) (bool, error) {
	e, err := c.lookupZSet(key)
	if err != nil || e == nil {
		return false, err
	}
	if !e.ZSet.Remove(name) {
		return false, nil
	}
	if e.ZSet.Len() == 0 {
		c.remove(key)
	}
	return true, nil
}

// ZScore returns the score of name
func (c *cedarImpl) ZScore(key, name []byte) (float64, bool, error) {
	e, err := c.lookupZSet(key)
	if err != nil || e == nil {
		return 0, false, err
	}
	m := e.ZSet.Lookup(name)
	if m == nil {
		return 0, false, nil
	}
	return m.Score, true, nil
}

// ZRank returns the rank of name
func (c *cedarImpl) ZRank(key, name []byte) (int64, bool, error) {
	e, err := c.lookupZSet(key)
	if err != nil || e == nil {
		return 0, false, err
	}
	m := e.ZSet.Lookup(name)
	if m == nil {
		return 0, false, nil
	}
	return e.ZSet.Rank(m), true, nil
}

// ZCard returns the size of the sorted set at key
func (c *cedarImpl) ZCard(key []byte) (int, error) {
	e, err := c.lookupZSet(key)
	if err != nil || e == nil {
		return 0, err
	}
	return e.ZSet.Len(), nil
}

// ZQuery returns up to limit members starting offset positions after the first member >= (score, name)
func (c *cedarImpl) ZQuery(key []byte, score float64, name []byte, offset, limit int64) ([]db.ScoredMember, error) {
	e, err := c.lookupZSet(key)
	if err != nil || e == nil {
		return nil, err
	}

	start := e.ZSet.Offset(e.ZSet.SeekGE(score, name), offset)
	var out []db.ScoredMember
	e.ZSet.Range(start, limit, func(m *zset.Member) bool {
		out = append(out, db.ScoredMember{Name: m.Name, Score: m.Score})
		return true
	})
	return out, nil
}

// --------------------------------------------------------------------------
// Info
// --------------------------------------------------------------------------

// Len returns the number of stored keys (due keys not yet collected included)
func (c *cedarImpl) Len() int {
	return c.data.Len()
}

// GetInfo returns information about the database
func (c *cedarImpl) GetInfo() db.DatabaseInfo {
	return db.DatabaseInfo{
		Keys:        c.data.Len(),
		VolatileKey: c.ttl.Len(),
		DbType:      db.ImplCedar,
	}
}

// Close drops all data
func (c *cedarImpl) Close() error {
	c.data.ForEach(func(_ []byte, e *internal.Entry) bool {
		e.Release()
		return true
	})
	c.data.Clear()
	c.ttl = util.NewMapHeap()
	return nil
}

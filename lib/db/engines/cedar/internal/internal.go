package internal

import (
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/zset"
)

// --------------------------------------------------------------------------
// Entry Type (one key of the keyspace)
// --------------------------------------------------------------------------

// Entry stores the value of a key with its metadata
type Entry struct {
	Type     db.ValueType
	Str      []byte     // value of a string key
	ZSet     *zset.ZSet // value of a sorted set key
	ExpireAt uint64     // deadline in unix milliseconds (0 = none)
}

// NewString creates a string entry owning a copy of value
func NewString(value []byte) *Entry {
	return &Entry{
		Type: db.TypeString,
		Str:  append([]byte{}, value...),
	}
}

// NewZSet creates an empty sorted set entry
func NewZSet() *Entry {
	return &Entry{
		Type: db.TypeZSet,
		ZSet: zset.New(),
	}
}

// IsExpired returns whether the deadline of the entry passed at now (unix ms)
func (e *Entry) IsExpired(now uint64) bool {
	return e.ExpireAt != 0 && now >= e.ExpireAt
}

// Release drops the value so the memory can be reclaimed
func (e *Entry) Release() {
	if e.ZSet != nil {
		e.ZSet.Clear()
		e.ZSet = nil
	}
	e.Str = nil
}

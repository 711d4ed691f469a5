package db

import (
	"time"

	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplCedar Implementation = "cedar"
)

// ValueType is the type of the value stored under a key
type ValueType uint8

const (
	TypeNone ValueType = iota
	TypeString
	TypeZSet
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeZSet:
		return "zset"
	default:
		return "none"
	}
}

// TTL results for keys without a deadline
const (
	TTLMissing   int64 = -2 // key does not exist
	TTLPersisted int64 = -1 // key exists and has no deadline
)

// ErrWrongType is returned when a key holds a value of another type than the
// one the operation works on
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

type DatabaseInfo struct {
	Keys        int            `json:"keys"`
	VolatileKey int            `json:"volatile_keys"`
	DbType      Implementation `json:"db_type"`
}

// ScoredMember is a (name, score) pair returned by sorted set queries
type ScoredMember struct {
	Name  []byte
	Score float64
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the keyspace the command dispatcher operates on.
// Every top-level key holds either a string value or a sorted set.
// Implementations are not required to be thread-safe: the server calls them
// from a single goroutine only.
type KVDB interface {

	// --------------------------------------------------------------------------
	// String Operations
	// --------------------------------------------------------------------------

	// Get retrieves the string value of key.
	// ErrWrongType is returned if the key holds a sorted set.
	Get(key []byte) (value []byte, loaded bool, err error)

	// Set stores a string value under key. The value is copied.
	// replaced reports whether a previous value was overwritten. Setting a key that holds a
	// sorted set fails with ErrWrongType. Set keeps an existing deadline of the key.
	Set(key, value []byte) (replaced bool, err error)

	// Delete removes key, whatever type it holds, including its deadline.
	Delete(key []byte) (existed bool)

	// Keys returns all keys in unspecified order
	Keys() [][]byte

	// --------------------------------------------------------------------------
	// Expiration
	// --------------------------------------------------------------------------

	// Expire sets the time to live of key. A negative ttl removes the deadline.
	// ok is false if the key does not exist.
	Expire(key []byte, ttl time.Duration) (ok bool)

	// TTL returns the remaining time to live in milliseconds, TTLMissing or TTLPersisted.
	TTL(key []byte) int64

	// NextExpiry returns the earliest deadline of all keys
	NextExpiry() (deadline time.Time, ok bool)

	// ExpireDue deletes up to max keys whose deadline passed and returns how many were deleted
	ExpireDue(max int) (expired int)

	// --------------------------------------------------------------------------
	// Sorted Set Operations
	// --------------------------------------------------------------------------

	// ZAdd inserts name with score into the sorted set at key, creating the set if needed.
	// added is false if name was present and only its score changed.
	ZAdd(key []byte, score float64, name []byte) (added bool, err error)

	// ZRem removes name from the sorted set at key. An emptied set removes the key.
	ZRem(key, name []byte) (removed bool, err error)

	// ZScore returns the score of name
	ZScore(key, name []byte) (score float64, loaded bool, err error)

	// ZRank returns the zero-based rank of name
	ZRank(key, name []byte) (rank int64, loaded bool, err error)

	// ZCard returns the number of members (0 for a missing key)
	ZCard(key []byte) (n int, err error)

	// ZQuery seeks to the first member >= (score, name), moves offset positions from
	// there and returns up to limit members in order (limit < 0 means no limit).
	ZQuery(key []byte, score float64, name []byte, offset, limit int64) (members []ScoredMember, err error)

	// --------------------------------------------------------------------------
	// Info
	// --------------------------------------------------------------------------

	// Len returns the number of keys
	Len() int

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases all data
	Close() (err error)
}

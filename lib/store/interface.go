package store

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// IStore is the generic interface for interacting with a sKV keyspace.
// Command level failures (wrong type, bad argument) are returned as *Error,
// transport failures as plain errors.
type IStore interface {
	// Get returns the string value of key. The boolean indicates whether the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Set inserts or replaces the string value of key. An existing deadline is kept.
	Set(key string, value []byte) (err error)
	// Delete removes key whatever type it holds.
	Delete(key string) (existed bool, err error)
	// Keys returns all keys in no particular order.
	Keys() (keys []string, err error)

	// PExpire sets the time to live of key. A negative ttl removes the deadline.
	// The boolean is false if the key does not exist.
	PExpire(key string, ttl time.Duration) (ok bool, err error)
	// PTTL returns the remaining time to live in milliseconds,
	// db.TTLPersisted if key has no deadline and db.TTLMissing if key does not exist.
	PTTL(key string) (ms int64, err error)

	// ZAdd inserts name with score, or updates the score of an existing member.
	ZAdd(key string, score float64, name string) (added bool, err error)
	// ZRem removes name. Removing the last member removes the key.
	ZRem(key, name string) (removed bool, err error)
	// ZScore returns the score of name.
	ZScore(key, name string) (score float64, loaded bool, err error)
	// ZRank returns the zero based position of name in (score, name) order.
	ZRank(key, name string) (rank int64, loaded bool, err error)
	// ZCard returns the number of members, 0 if key does not exist.
	ZCard(key string) (n int64, err error)
	// ZQuery returns at most limit members, starting offset positions away from
	// the first member >= (score, name).
	ZQuery(key string, score float64, name string, offset, limit int64) (members []db.ScoredMember, err error)

	// Close releases the resources of the store
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("sKV error (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode mirrors the codes of ERR values on the wire
type RetCode int32

const (
	RetCSuccess         RetCode = iota // 0: Command executed successfully.
	RetCUnknownCommand                 // 1: Unknown command or wrong number of arguments.
	RetCTooBig                         // 2: Response exceeds the message limit.
	RetCWrongType                      // 3: The key holds a value of another type.
	RetCInvalidArgument                // 4: An argument could not be parsed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCUnknownCommand:
		return "UnknownCommand"
	case RetCTooBig:
		return "TooBig"
	case RetCWrongType:
		return "WrongType"
	case RetCInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(c))
	}
}

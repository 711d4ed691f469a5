// Package util
//
// This file provides a deadline queue for key expiration.
//
// This implementation combines a binary heap with a hash map to provide both
// efficient deadline-ordered operations and key-based access. The engine uses it
// to find the next key that has to be expired, while still being able to update
// or drop the deadline of a specific key when it is overwritten or deleted.
//
// Time Complexity:
//   - O(log n) for priority operations (Push, Pop, AddItem on an existing key)
//   - O(1) for key-based lookups and existence checks
//   - O(log n) for key-based removal
//
// Note: This implementation is not thread-safe.
//
// Example usage:
//
//	ttl := NewMapHeap()
//
//	// register deadlines (milliseconds)
//	ttl.AddItem("session:1", now+1000)
//	ttl.AddItem("session:2", now+5000)
//
//	// the key is persisted again
//	ttl.RemoveByKey("session:2")
//
//	// expire everything that is due
//	for _, key := range ttl.PopExpired(now, 100) {
//	    ...
//	}
package util

import (
	"container/heap"
	"strconv"
)

// item represents a deadline in the queue
type item struct {
	Key      string // Key the deadline belongs to
	Priority uint64 // Deadline (smaller = earlier)
	index    int    // Index in the heap, maintained by heap package
}

func (i *item) String() string {
	return "{Key: " + strconv.Quote(i.Key) + ", Priority: " + strconv.FormatUint(i.Priority, 10) + "}"
}

// MapHeap implements a min-heap of deadlines with key-based access
type MapHeap struct {
	items    []*item          // The actual heap slice
	itemsMap map[string]*item // Map for O(1) access by key
}

// NewMapHeap creates a new, initialized deadline queue
func NewMapHeap() *MapHeap {
	return &MapHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (mh *MapHeap) Len() int { return len(mh.items) }

// Less compares items by deadline (part of heap.Interface)
func (mh *MapHeap) Less(i, j int) bool {
	return mh.items[i].Priority < mh.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (mh *MapHeap) Push(x interface{}) {
	n := len(mh.items)
	item := x.(*item)
	item.index = n
	mh.items = append(mh.items, item)
	mh.itemsMap[item.Key] = item
}

// Pop removes and returns the last item (part of heap.Interface)
func (mh *MapHeap) Pop() interface{} {
	old := mh.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	mh.items = old[:n-1]
	delete(mh.itemsMap, item.Key)
	return item
}

// AddItem adds a new deadline to the queue or updates the existing one
func (mh *MapHeap) AddItem(key string, priority uint64) {
	if item, exists := mh.itemsMap[key]; exists {
		item.Priority = priority
		heap.Fix(mh, item.index)
		return
	}

	heap.Push(mh, &item{
		Key:      key,
		Priority: priority,
	})
}

// RemoveByKey removes an item by its key and returns its deadline
func (mh *MapHeap) RemoveByKey(key string) (uint64, bool) {
	item, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}

	heap.Remove(mh, item.index)
	return item.Priority, true
}

// Peek returns the earliest item without removing it
func (mh *MapHeap) Peek() (*item, bool) {
	if len(mh.items) == 0 {
		return nil, false
	}
	return mh.items[0], true
}

// Contains checks if a key has a deadline
func (mh *MapHeap) Contains(key string) bool {
	_, exists := mh.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it
func (mh *MapHeap) GetByKey(key string) (*item, bool) {
	item, exists := mh.itemsMap[key]
	return item, exists
}

// PopExpired removes and returns up to max keys whose deadline is <= now,
// earliest first. A max <= 0 means no limit.
func (mh *MapHeap) PopExpired(now uint64, max int) []string {
	var keys []string
	for len(mh.items) > 0 && mh.items[0].Priority <= now {
		if max > 0 && len(keys) >= max {
			break
		}
		keys = append(keys, heap.Pop(mh).(*item).Key)
	}
	return keys
}

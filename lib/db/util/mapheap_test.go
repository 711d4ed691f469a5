package util

import (
	"container/heap"
	"fmt"
	"sort"
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap()

	if mh == nil {
		t.Fatal("NewMapHeap() returned nil")
	}

	if mh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", mh.Len())
	}

	if len(mh.itemsMap) != 0 {
		t.Errorf("New heap's map should be empty, but has %d items", len(mh.itemsMap))
	}
}

// TestAddItem tests adding deadlines to the heap
func TestAddItem(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	if mh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", mh.Len())
	}

	for _, key := range []string{"a", "b", "c"} {
		if !mh.Contains(key) {
			t.Errorf("Heap should contain key %q", key)
		}
	}

	item, exists := mh.Peek()
	if !exists {
		t.Fatal("Peek() should return an item")
	}

	if item.Key != "c" || item.Priority != 50 {
		t.Errorf("Expected min item to be (c,50), got %s", item)
	}
}

// TestUpdateItem tests moving the deadline of an existing key
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)

	// push the deadline of a behind b
	mh.AddItem("a", 300)

	item, exists := mh.GetByKey("a")
	if !exists {
		t.Fatal("Item with key a should exist")
	}
	if item.Priority != 300 {
		t.Errorf("Item with key a should have deadline 300, got %d", item.Priority)
	}

	min, _ := mh.Peek()
	if min.Key != "b" {
		t.Errorf("Min item should now be key b, got %s", min.Key)
	}

	mh.AddItem("b", 50)
	min, _ = mh.Peek()
	if min.Key != "b" || min.Priority != 50 {
		t.Errorf("Min item should now be (b,50), got %s", min)
	}

	if mh.Len() != 2 {
		t.Errorf("Updating must not add items, heap has %d", mh.Len())
	}
}

// TestRemoveByKey tests removing deadlines by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 300)

	value, exists := mh.RemoveByKey("b")
	if !exists {
		t.Fatal("RemoveByKey should return true for existing key")
	}
	if value != 200 {
		t.Errorf("RemoveByKey should return deadline 200, got %d", value)
	}
	if mh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", mh.Len())
	}
	if mh.Contains("b") {
		t.Error("Heap should not contain key b after removal")
	}

	if _, exists = mh.RemoveByKey("missing"); exists {
		t.Error("RemoveByKey should return false for non-existent key")
	}
}

// TestPopOrder tests if deadlines are popped earliest first
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap()

	items := []struct {
		key   string
		value uint64
	}{
		{"e", 50},
		{"c", 30},
		{"a", 10},
		{"d", 40},
		{"b", 20},
	}

	for _, item := range items {
		mh.AddItem(item.key, item.value)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].value < items[j].value
	})

	for i, expected := range items {
		if mh.Len() == 0 {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(items))
		}

		item := heap.Pop(mh).(*item)
		if item.Key != expected.key || item.Priority != expected.value {
			t.Errorf("Pop %d: expected (%s,%d), got %s", i, expected.key, expected.value, item)
		}
	}

	if mh.Len() != 0 {
		t.Errorf("Heap should be empty after popping all items, has %d items", mh.Len())
	}
	if len(mh.itemsMap) != 0 {
		t.Errorf("Map should be empty after popping all items, has %d items", len(mh.itemsMap))
	}
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	mh := NewMapHeap()

	if _, exists := mh.Peek(); exists {
		t.Error("Peek on empty heap should return exists=false")
	}
}

// TestPopExpired tests draining due deadlines with and without a work limit
func TestPopExpired(t *testing.T) {
	mh := NewMapHeap()
	for i := 0; i < 10; i++ {
		mh.AddItem(fmt.Sprintf("k%d", i), uint64(i*10))
	}

	// nothing is due before the first deadline
	mh.AddItem("late", 1000)
	if keys := mh.PopExpired(0, 0); len(keys) != 1 || keys[0] != "k0" {
		t.Fatalf("Expected only k0 to be due at 0, got %v", keys)
	}

	// limit the amount of work
	keys := mh.PopExpired(45, 2)
	if len(keys) != 2 || keys[0] != "k1" || keys[1] != "k2" {
		t.Fatalf("Expected [k1 k2], got %v", keys)
	}

	keys = mh.PopExpired(45, 0)
	if len(keys) != 2 || keys[0] != "k3" || keys[1] != "k4" {
		t.Fatalf("Expected [k3 k4], got %v", keys)
	}

	if mh.Len() != 6 {
		t.Errorf("Expected 6 remaining deadlines, got %d", mh.Len())
	}
	if !mh.Contains("late") {
		t.Error("Deadline in the future must not be popped")
	}
}

// TestLargeNumberOfItems tests the heap with many keys and random removals
func TestLargeNumberOfItems(t *testing.T) {
	mh := NewMapHeap()
	const n = 10000

	for i := 0; i < n; i++ {
		mh.AddItem(fmt.Sprintf("key-%d", i), uint64((i*7919)%n))
	}
	for i := 0; i < n; i += 3 {
		mh.RemoveByKey(fmt.Sprintf("key-%d", i))
	}

	var last uint64
	count := 0
	for mh.Len() > 0 {
		item := heap.Pop(mh).(*item)
		if item.Priority < last {
			t.Fatalf("Heap order violated: %d after %d", item.Priority, last)
		}
		last = item.Priority
		count++
	}

	expected := n - (n+2)/3
	if count != expected {
		t.Errorf("Expected %d items, popped %d", expected, count)
	}
}

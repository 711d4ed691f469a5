// Package avl implements a self-balancing (AVL) binary search tree whose nodes
// carry the size of their subtree.
//
// The subtree size makes positional queries cheap: the rank of a node and the
// node delta positions away from a given node are both found in O(log n) by
// walking the tree instead of iterating it.
//
// Nodes keep a back-reference to their parent. Every structural change
// (insert, delete, rotation) re-links parents and updates height and subtree
// size on the affected path. Node pointers stay valid until the node itself is
// deleted, which is what allows a secondary index (e.g. a hash table) to point
// into the tree.
//
// The tree is not thread-safe.
package avl

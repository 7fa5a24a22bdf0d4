package deepen

import "strings"

// pruneSet is the trie-set of spec §4.6: it remembers every path the
// real callback pruned so a later, deeper pass never re-descends into
// it even though the pruned directory itself sits well within the new
// pass's depth window.
type pruneSet struct {
	root *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	pruned   bool
}

func newPruneSet() *pruneSet {
	return &pruneSet{root: &trieNode{children: map[string]*trieNode{}}}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Insert marks path (and everything beneath it) as pruned.
func (s *pruneSet) Insert(path string) {
	n := s.root
	for _, part := range splitPath(path) {
		child, ok := n.children[part]
		if !ok {
			child = &trieNode{children: map[string]*trieNode{}}
			n.children[part] = child
		}
		n = child
	}
	n.pruned = true
}

// ContainsAncestor reports whether path is, or descends from, any path
// previously passed to Insert.
func (s *pruneSet) ContainsAncestor(path string) bool {
	n := s.root
	for _, part := range splitPath(path) {
		child, ok := n.children[part]
		if !ok {
			return false
		}
		if child.pruned {
			return true
		}
		n = child
	}
	return n.pruned
}

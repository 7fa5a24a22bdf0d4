package pwalk

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collator performs the locale-aware strcoll-equivalent comparison
// spec §4.5.6 asks for, rather than a byte-wise strings.Compare —
// golang.org/x/text/collate is the pack's locale-collation library,
// used here instead of hand-rolling one.
var collator = collate.New(language.Und)

// lessEntry orders two siblings by locale-aware collation order. Both
// traversal queues are sorted with this comparator on their buffered
// entries before a Sort-flagged flush, so that combined with the Order
// queue flag, callback delivery matches sorted order even when stats
// are dispatched asynchronously.
func lessEntry(a, b *File) bool {
	return collator.CompareString(a.name, b.name) < 0
}

// Package align reorders the entries of a resource document so that the
// entries it shares with a reference document follow the reference order.
//
// Entries are only ever relocated by pairwise swaps between the cursor
// position and the position of the entry the reference expects there.
// Opaque entries (and keyless ones) are not part of the walk and keep their
// physical place in the document.
package align

import (
	"fmt"

	"github.com/minios-linux/strsync/resource"
)

// Order aligns target against reference and returns the number of swaps
// performed. The reference is only read. A second call with the same
// arguments performs no swaps.
func Order(target, reference resource.Tree) (int, error) {
	ref := resource.Alignable(reference)
	tgt := resource.Alignable(target)

	// Built back to front so a repeated comment text points at its first
	// occurrence.
	index := make(map[string]int, len(tgt))
	for i := len(tgt) - 1; i >= 0; i-- {
		index[identity(tgt[i])] = i
	}

	// The walk covers the length of the shorter list only; t never passes i.
	swaps := 0
	t := 0
	for i := 0; i < min(len(ref), len(tgt)); i++ {
		want := identity(ref[i])
		if identity(tgt[t]) == want {
			t++
			continue
		}
		p, ok := lookup(tgt, index, want, t)
		if !ok {
			continue
		}
		if err := swap(target, tgt[t], tgt[p]); err != nil {
			return swaps, fmt.Errorf("swapping %q and %q: %w", identity(tgt[t]), want, err)
		}
		tgt[t], tgt[p] = tgt[p], tgt[t]
		index[identity(tgt[t])] = t
		index[identity(tgt[p])] = p
		swaps++
		t++
	}
	return swaps, nil
}

// lookup returns the position after cursor holding key. Positions at or
// before the cursor are already aligned and never handed out again; when the
// index points there (repeated comments) the rest of the list is scanned.
func lookup(tgt []*resource.Entry, index map[string]int, key string, cursor int) (int, bool) {
	p, ok := index[key]
	if !ok {
		return 0, false
	}
	if p > cursor && identity(tgt[p]) == key {
		return p, true
	}
	for j := cursor + 1; j < len(tgt); j++ {
		if identity(tgt[j]) == key {
			index[key] = j
			return j, true
		}
	}
	return 0, false
}

// swap exchanges the physical places of a and b, a preceding b. b is moved
// right after a, then a is moved to where b was, i.e. after b's former
// predecessor. Anything between the two stays where it is.
func swap(tree resource.Tree, a, b *resource.Entry) error {
	children := tree.Children()
	prev := -1
	for i, e := range children {
		if e == b {
			prev = i - 1
			break
		}
	}
	if prev < 0 {
		return fmt.Errorf("entry %q not found before its predecessor", identity(b))
	}
	anchor := children[prev]
	if anchor == a {
		return tree.MoveAfter(a, b)
	}
	if err := tree.MoveAfter(b, a); err != nil {
		return err
	}
	return tree.MoveAfter(a, anchor)
}

func identity(e *resource.Entry) string {
	k, _ := e.Identity()
	return k
}

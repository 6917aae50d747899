// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

// objectTable is the ordered path-keyed storage shared by the
// registries. Order is insertion order; removal preserves the order of
// the remaining entries.
type objectTable[E any] struct {
	entries []E
	pathOf  func(E) ObjectPath
}

func (t *objectTable[E]) paths() []ObjectPath {
	paths := make([]ObjectPath, len(t.entries))
	for i, entry := range t.entries {
		paths[i] = t.pathOf(entry)
	}
	return paths
}

func (t *objectTable[E]) find(path ObjectPath) (E, int) {
	for i, entry := range t.entries {
		if t.pathOf(entry) == path {
			return entry, i
		}
	}
	var zero E
	return zero, -1
}

func (t *objectTable[E]) insert(entry E) {
	t.entries = append(t.entries, entry)
}

func (t *objectTable[E]) removeAt(index int) {
	t.entries = append(t.entries[:index], t.entries[index+1:]...)
}

func (t *objectTable[E]) len() int { return len(t.entries) }

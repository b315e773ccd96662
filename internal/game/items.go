package game

import (
	"math/rand"
	"sort"
)

// ItemField owns the items-on-the-grid mapping plus the staged reveals
// produced by wall destruction this tick (§3 Data Model Items;
// SPEC_FULL.md §4 resolved Open Question 5: an item becomes collectible
// the tick *after* the wall destroying it, not the same tick).
type ItemField struct {
	items         map[Cell]ItemKind
	pendingReveal map[Cell]ItemKind
}

func NewItemField() *ItemField {
	return &ItemField{
		items:         make(map[Cell]ItemKind),
		pendingReveal: make(map[Cell]ItemKind),
	}
}

// SeedDrop is called when a soft wall is destroyed. It rolls the chance of
// an item and stages it as a pending reveal rather than making it
// immediately collectible.
func (f *ItemField) SeedDrop(c Cell, rng *rand.Rand) {
	const dropChance = 0.35
	if rng.Float64() >= dropChance {
		return
	}
	kinds := []ItemKind{ItemRangeUp, ItemBombUp, ItemSpeedUp, ItemKick, ItemGhost, ItemShield}
	f.pendingReveal[c] = kinds[rng.Intn(len(kinds))]
}

// PromotePending moves all pending reveals into the collectible item map.
// Called at the top of the tick following detonation (step 3 precondition).
func (f *ItemField) PromotePending() {
	for c, k := range f.pendingReveal {
		f.items[c] = k
		delete(f.pendingReveal, c)
	}
}

// At returns the item at a cell, if any.
func (f *ItemField) At(c Cell) (ItemKind, bool) {
	k, ok := f.items[c]
	return k, ok
}

// Consume removes and returns the item at a cell (pickup).
func (f *ItemField) Consume(c Cell) (ItemKind, bool) {
	k, ok := f.items[c]
	if ok {
		delete(f.items, c)
	}
	return k, ok
}

// List returns all currently collectible items as (cell, kind) pairs, in a
// stable row-major order for deterministic wire encoding.
func (f *ItemField) List() []struct {
	Cell Cell
	Kind ItemKind
} {
	out := make([]struct {
		Cell Cell
		Kind ItemKind
	}, 0, len(f.items))
	for c, k := range f.items {
		out = append(out, struct {
			Cell Cell
			Kind ItemKind
		}{c, k})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cell.Row != out[j].Cell.Row {
			return out[i].Cell.Row < out[j].Cell.Row
		}
		return out[i].Cell.Col < out[j].Cell.Col
	})
	return out
}

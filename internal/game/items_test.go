package game

import (
	"math/rand"
	"testing"
)

func TestItemField_PendingRevealNotImmediatelyCollectible(t *testing.T) {
	f := NewItemField()
	c := Cell{3, 3}

	// Force a drop by drawing from a seed that rolls under dropChance at
	// least once within a handful of tries.
	rng := rand.New(rand.NewSource(1))
	dropped := false
	for i := 0; i < 100 && !dropped; i++ {
		f.SeedDrop(c, rng)
		if _, ok := f.pendingReveal[c]; ok {
			dropped = true
		}
	}
	if !dropped {
		t.Fatal("expected SeedDrop to eventually stage a pending reveal within 100 tries")
	}

	if _, ok := f.At(c); ok {
		t.Fatal("a pending reveal must not be collectible the same tick it was staged")
	}

	f.PromotePending()
	if _, ok := f.At(c); !ok {
		t.Fatal("expected the pending reveal to become collectible after PromotePending")
	}
}

func TestItemField_ConsumeRemovesItem(t *testing.T) {
	f := NewItemField()
	c := Cell{4, 4}
	f.pendingReveal[c] = ItemSpeedUp
	f.PromotePending()

	k, ok := f.Consume(c)
	if !ok || k != ItemSpeedUp {
		t.Fatalf("expected to consume ItemSpeedUp, got %v, ok=%v", k, ok)
	}
	if _, ok := f.At(c); ok {
		t.Fatal("expected item to be gone after Consume")
	}
}

func TestItemField_ListIsStableOrder(t *testing.T) {
	f := NewItemField()
	f.pendingReveal[Cell{5, 1}] = ItemGhost
	f.pendingReveal[Cell{1, 1}] = ItemKick
	f.pendingReveal[Cell{3, 0}] = ItemShield
	f.PromotePending()

	list := f.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 items, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1].Cell, list[i].Cell
		if cur.Row < prev.Row || (cur.Row == prev.Row && cur.Col < prev.Col) {
			t.Fatalf("List() is not in row-major order: %+v before %+v", prev, cur)
		}
	}
}

func TestPlayer_ApplyItemCapsAtMax(t *testing.T) {
	p := NewPlayer(1, Cell{1, 1})
	for i := 0; i < 20; i++ {
		p.ApplyItem(ItemRangeUp)
	}
	if p.GetState().BombRange > 8 { // config.MaxBombRange
		t.Fatalf("BombRange exceeded its cap: %d", p.GetState().BombRange)
	}

	for i := 0; i < 20; i++ {
		p.ApplyItem(ItemBombUp)
	}
	if p.GetState().MaxBombs > 8 { // config.MaxBombs
		t.Fatalf("MaxBombs exceeded its cap: %d", p.GetState().MaxBombs)
	}

	for i := 0; i < 20; i++ {
		p.ApplyItem(ItemSpeedUp)
	}
	if p.GetState().Speed > 5.0 { // config.MaxSpeed
		t.Fatalf("Speed exceeded its cap: %v", p.GetState().Speed)
	}
}

func TestPlayer_ApplyItemGhostRefreshesNotAdds(t *testing.T) {
	p := NewPlayer(1, Cell{1, 1})
	p.ApplyItem(ItemGhost)
	first := p.GetState().GhostTimerMS
	p.ApplyItem(ItemGhost)
	second := p.GetState().GhostTimerMS

	if first != second {
		t.Fatalf("expected ghost timer to refresh to the same constant, got %v then %v", first, second)
	}
}

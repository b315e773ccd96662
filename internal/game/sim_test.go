package game

import (
	"math/rand"
	"testing"

	"github.com/bombarena/server/config"
)

// newSimRoom builds a RoomState directly (bypassing InitLevel's random wall
// generation) so scenario tests control the grid precisely, matching the
// literal end-to-end scenarios this package's tick order must satisfy.
func newSimRoom(mode GameMode) *RoomState {
	return &RoomState{
		Grid:    emptyGrid(),
		Items:   NewItemField(),
		Bombs:   NewBombField(),
		Enemies: NewEnemyField(),
		RNG:     rand.New(rand.NewSource(7)),
		Phase:   PhasePlaying,
		Mode:    mode,
		Levels:  []Level{{}},
	}
}

// Scenario 1 (spec §8.1): a player's bomb detonates and kills an enemy
// standing on one of its blast cells, crediting the owner's score.
func TestScenario_SoloBombKillsAdjacentEnemyAndCreditsScore(t *testing.T) {
	r := newSimRoom(ModePVE)
	// (5,5) has both coordinates odd, so under the grid's even/even
	// hard-wall rule every cardinal neighbor is guaranteed passable.
	p := NewPlayer(1, Cell{5, 5})
	r.Players = []*Player{p}
	enemy := r.Enemies.Spawn(EnemyBalloon, Cell{6, 5}) // adjacent, inside range-1 blast cross
	enemy.Speed = 0                                    // keep the balloon on its cell until the fuse runs out

	p.QueueBomb()
	r.Step(10, nil)

	detonated := false
	for i := 0; i < 400; i++ {
		before := len(r.Bombs.Bombs())
		r.Step(10, nil)
		if before == 1 && len(r.Bombs.Bombs()) == 0 {
			detonated = true
			break
		}
	}
	if !detonated {
		t.Fatal("expected the bomb to detonate within 4000ms of simulated ticks")
	}

	if enemy.IsAlive() {
		t.Fatal("expected the adjacent BALLOON to die from the explosion")
	}
	if p.GetState().Score != 1 {
		t.Fatalf("expected the placing player's score to reach 1, got %d", p.GetState().Score)
	}
}

// Scenario 2 (spec §8.2): two adjacent bombs chain-detonate, and each
// owner's ActiveBombs counter decrements exactly once.
func TestScenario_ChainDetonationDecrementsBothOwnersActiveBombs(t *testing.T) {
	// PVP: in PVE the enemy-free test level would count as cleared and
	// finish the room on the first tick, before any fuse runs out.
	r := newSimRoom(ModePVP)
	p1 := NewPlayer(1, Cell{1, 1})
	p2 := NewPlayer(2, Cell{10, 10})
	r.Players = []*Player{p1, p2}

	b1, _ := r.Bombs.Place(p1.ID, Cell{3, 5}, 2, 3000)
	_, _ = r.Bombs.Place(p2.ID, Cell{4, 5}, 2, 3500)
	p1.ActiveBombs = 1
	p2.ActiveBombs = 1
	_ = b1

	for i := 0; i < 400; i++ {
		before := len(r.Bombs.Bombs())
		r.Step(10, nil)
		if before > 0 && len(r.Bombs.Bombs()) == 0 {
			break
		}
	}

	if len(r.Bombs.Bombs()) != 0 {
		t.Fatalf("expected both bombs consumed by the chain, %d remain", len(r.Bombs.Bombs()))
	}

	seenCells := map[Cell]bool{}
	for _, e := range r.Bombs.Explosions() {
		if seenCells[e.Cell] {
			t.Fatalf("duplicate explosion cell %+v: a ray kept stepping past a bomb it hit", e.Cell)
		}
		seenCells[e.Cell] = true
	}
	if p1.GetState().ActiveBombs != 0 {
		t.Fatalf("expected player 1's ActiveBombs decremented to 0, got %d", p1.GetState().ActiveBombs)
	}
	if p2.GetState().ActiveBombs != 0 {
		t.Fatalf("expected player 2's ActiveBombs decremented to 0, got %d", p2.GetState().ActiveBombs)
	}
}

// Scenario 3 (spec §8.3): a soft wall absorbs a blast ray; nothing beyond it
// (including an enemy standing there) takes damage.
func TestScenario_SoftWallAbsorbsRayProtectsEnemyBeyond(t *testing.T) {
	r := newSimRoom(ModePVE)
	p := NewPlayer(1, Cell{1, 1})
	r.Players = []*Player{p}

	wallCell := Cell{3, 5}
	protectedCell := Cell{4, 5}
	r.Grid.tiles[idx(wallCell.Col, wallCell.Row, r.Grid.W)] = TileSoftWall
	enemy := r.Enemies.Spawn(EnemyBalloon, protectedCell)

	r.Bombs.Place(p.ID, Cell{2, 5}, 3, 10)

	r.Step(20, nil) // fuse 10 - 20 <= 0: detonates this tick

	if r.Grid.At(wallCell) != TileEmpty {
		t.Fatal("expected the soft wall to be destroyed by the blast")
	}
	if r.Bombs.AnyAt(protectedCell) {
		t.Fatal("expected no explosion cell beyond the absorbed soft wall")
	}
	if !enemy.IsAlive() {
		t.Fatal("expected the enemy beyond the soft wall to survive")
	}
}

// Scenario 4 (spec §8.4): a GHOST timer expiring while the player occupies a
// SOFT_WALL cell relocates them to the nearest empty cell within one tick.
func TestScenario_GhostExpiryInWallRelocates(t *testing.T) {
	r := newSimRoom(ModePVE)
	p := NewPlayer(1, Cell{1, 1})
	r.Players = []*Player{p}

	wallCell := Cell{5, 5}
	r.Grid.tiles[idx(wallCell.Col, wallCell.Row, r.Grid.W)] = TileSoftWall

	x, y := spawnPixel(wallCell)
	p.X, p.Y = x, y
	p.GhostTimerMS = 10 // expires this tick

	r.Step(16, nil)

	if p.Cell() == wallCell {
		t.Fatal("expected the player to be relocated out of the soft-wall cell")
	}
	if r.Grid.At(p.Cell()) != TileEmpty {
		t.Fatalf("expected relocation onto an EMPTY cell, landed on %+v", p.Cell())
	}
}

// Scenario 5 (spec §8.5): kicking a bomb sends it sliding until it stops
// adjacent to a wall, snapped to that cell, fuse untouched by the slide.
func TestScenario_KickedBombSlidesAndStopsAtWall(t *testing.T) {
	r := newSimRoom(ModePVE)
	wallCell := Cell{8, 5}
	r.Grid.tiles[idx(wallCell.Col, wallCell.Row, r.Grid.W)] = TileHardWall

	b, _ := r.Bombs.Place(0, Cell{5, 5}, 1, 3000)
	TryKick(b, DirRight)

	for i := 0; i < 200; i++ {
		r.integrateBombs(1.0)
		if b.VX == 0 && b.VY == 0 {
			break
		}
	}

	if b.VX != 0 || b.VY != 0 {
		t.Fatal("expected the bomb to come to rest before reaching the wall")
	}
	if b.Cell.Col >= wallCell.Col {
		t.Fatalf("expected the bomb to stop before the wall cell, stopped at %+v", b.Cell)
	}
	if b.FuseMS != 3000 {
		t.Fatalf("expected the slide to leave the fuse untouched, got %v", b.FuseMS)
	}
}

// Scenario 6 (spec §8.6): PVP last-standing arbitration. Player 2 takes
// explosion damage into TRAPPED, then their trapped timer runs out with no
// rescue, producing a DEAD state and a FINISHED phase crediting player 1.
func TestScenario_PVPLastStandingArbitration(t *testing.T) {
	r := newSimRoom(ModePVP)
	p1 := NewPlayer(1, Cell{1, 1})
	p2 := NewPlayer(2, Cell{9, 9})
	r.Players = []*Player{p1, p2}

	r.Bombs.emitBlast(0, p2.Cell())
	r.Step(16, nil)

	if p2.GetState().State != StateTrapped {
		t.Fatalf("expected player 2 to become TRAPPED from the explosion, got %v", p2.GetState().State)
	}

	r.Bombs.AdvanceExplosions(10000) // clear the blast so it doesn't re-trigger damage

	for i := 0; i < 400 && r.Phase == PhasePlaying; i++ {
		r.Step(20, nil)
	}

	if r.Phase != PhaseFinished {
		t.Fatalf("expected the room to reach FINISHED, got %v", r.Phase)
	}
	if r.Winner != WinCode(p1.ID) {
		t.Fatalf("expected player 1 credited as winner, got %v", r.Winner)
	}
}

func TestInvariant_NoEntityEndsOnHardWall(t *testing.T) {
	r := newSimRoom(ModePVE)
	p := NewPlayer(1, Cell{1, 1})
	r.Players = []*Player{p}
	enemy := r.Enemies.Spawn(EnemyBalloon, Cell{3, 1})

	input := PlayerInput{Right: true, Down: true}
	for i := 0; i < 100; i++ {
		r.Step(config.NominalTickMS, map[int]PlayerInput{1: input})
		if r.Grid.At(p.Cell()) == TileHardWall {
			t.Fatalf("player ended up on a HARD_WALL cell at tick %d: %+v", i, p.Cell())
		}
		if enemy.IsAlive() && r.Grid.At(enemy.Cell()) == TileHardWall {
			t.Fatalf("enemy ended up on a HARD_WALL cell at tick %d: %+v", i, enemy.Cell())
		}
	}
}

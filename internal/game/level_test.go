package game

import (
	"math/rand"
	"testing"

	"github.com/bombarena/server/config"
)

func testLevels() []Level {
	return ParseLevels([]config.LevelConfig{
		{Name: "one", WallDensity: 0.5, Enemies: []string{"BALLOON", "GHOST"}},
		{Name: "two-with-boss", WallDensity: 0.5, Enemies: []string{}, Boss: "BOSS_SLIME"},
	})
}

func TestNewLevel_DropsUnknownEnemyNamesWithoutFailing(t *testing.T) {
	l := NewLevel(config.LevelConfig{Name: "x", Enemies: []string{"BALLOON", "NOT_A_KIND", "TANK"}})
	if len(l.Enemies) != 2 {
		t.Fatalf("expected unknown enemy kinds to be dropped, got %d entries", len(l.Enemies))
	}
}

func TestNewLevel_UnknownBossLeavesHasBossFalse(t *testing.T) {
	l := NewLevel(config.LevelConfig{Name: "x", Boss: "NOT_A_BOSS"})
	if l.HasBoss {
		t.Fatal("expected an unparseable boss name to leave HasBoss false")
	}
}

func TestInitLevel_SpawnsRosterAwayFromPlayerCorners(t *testing.T) {
	levels := testLevels()
	rng := rand.New(rand.NewSource(42))
	enemies := NewEnemyField()
	p1 := NewPlayer(1, Cell{1, 1})
	p2 := NewPlayer(2, Cell{1, 1})
	players := []*Player{p1, p2}

	grid := InitLevel(levels[0], rng, enemies, players)

	if enemies.Count() != len(levels[0].Enemies) {
		t.Fatalf("expected %d enemies spawned, got %d", len(levels[0].Enemies), enemies.Count())
	}

	cornerA, cornerB := SpawnCorners()
	for _, e := range enemies.List() {
		c := e.Cell()
		if (abs(c.Col-cornerA.Col) <= 1 && abs(c.Row-cornerA.Row) <= 1) ||
			(abs(c.Col-cornerB.Col) <= 1 && abs(c.Row-cornerB.Row) <= 1) {
			t.Fatalf("enemy spawned inside a player spawn corner at %+v", c)
		}
		if grid.At(c) == TileHardWall {
			t.Fatalf("enemy spawned on a HARD_WALL cell at %+v", c)
		}
	}
}

func TestInitLevel_ResetsPlayersPreservingScore(t *testing.T) {
	levels := testLevels()
	rng := rand.New(rand.NewSource(1))
	enemies := NewEnemyField()
	p := NewPlayer(1, Cell{1, 1})
	p.Score = 7
	p.BombRange = 5
	p.State = StateTrapped

	InitLevel(levels[0], rng, enemies, []*Player{p})

	st := p.GetState()
	if st.Score != 7 {
		t.Fatalf("expected score preserved across level init, got %d", st.Score)
	}
	if st.BombRange != 1 {
		t.Fatalf("expected BombRange reset to base, got %d", st.BombRange)
	}
	if st.State != StateNormal {
		t.Fatalf("expected state reset to NORMAL, got %v", st.State)
	}
}

func TestMaybeSpawnBoss_TriggersOnlyWhenRosterClearedAndNotAlreadySpawned(t *testing.T) {
	levels := testLevels()
	bossLevel := levels[1]
	rng := rand.New(rand.NewSource(1))
	enemies := NewEnemyField()
	grid := emptyGrid()

	spawned := MaybeSpawnBoss(bossLevel, grid, rng, enemies, false)
	if !spawned {
		t.Fatal("expected the boss to spawn once the (empty) roster is clear")
	}
	if enemies.Count() != 1 {
		t.Fatalf("expected exactly one boss enemy spawned, got %d", enemies.Count())
	}

	countBefore := enemies.Count()
	spawned = MaybeSpawnBoss(bossLevel, grid, rng, enemies, true)
	if !spawned {
		t.Fatal("expected bossSpawned=true to be preserved")
	}
	if enemies.Count() != countBefore {
		t.Fatal("expected no second boss to be spawned once bossSpawned is true")
	}
}

func TestMaybeSpawnBoss_WaitsForRosterToClear(t *testing.T) {
	levels := testLevels()
	bossLevel := levels[1]
	rng := rand.New(rand.NewSource(1))
	enemies := NewEnemyField()
	enemies.Spawn(EnemyBalloon, Cell{3, 3}) // non-boss roster member still alive
	grid := emptyGrid()

	spawned := MaybeSpawnBoss(bossLevel, grid, rng, enemies, false)
	if spawned {
		t.Fatal("expected the boss not to spawn while the roster is not yet clear")
	}
}

func TestArbitrate_PVPLastPlayerStandingWins(t *testing.T) {
	p1 := NewPlayer(1, Cell{1, 1})
	p2 := NewPlayer(2, Cell{1, 1})
	p2.State = StateDead
	players := []*Player{p1, p2}

	enemies := NewEnemyField()
	grid := emptyGrid()
	result := Arbitrate(ModePVP, Level{}, false, grid, enemies, false, players)

	if result == nil || result.NextPhase != PhaseFinished || result.Winner != WinCode(p1.ID) {
		t.Fatalf("expected player 1 to win, got %+v", result)
	}
}

func TestArbitrate_PVPAllDeadIsNoWinner(t *testing.T) {
	p1 := NewPlayer(1, Cell{1, 1})
	p2 := NewPlayer(2, Cell{1, 1})
	p1.State = StateDead
	p2.State = StateDead
	players := []*Player{p1, p2}

	enemies := NewEnemyField()
	grid := emptyGrid()
	result := Arbitrate(ModePVP, Level{}, false, grid, enemies, false, players)

	if result == nil || result.NextPhase != PhaseFinished || result.Winner != WinNone {
		t.Fatalf("expected WinNone on total wipeout, got %+v", result)
	}
}

func TestArbitrate_PVETrappedSurvivorKeepsPlaying(t *testing.T) {
	p1 := NewPlayer(1, Cell{1, 1})
	p1.State = StateTrapped
	players := []*Player{p1}

	enemies := NewEnemyField()
	enemies.Spawn(EnemyBalloon, Cell{3, 3})
	grid := emptyGrid()
	result := Arbitrate(ModePVE, testLevels()[0], false, grid, enemies, false, players)

	if result != nil {
		t.Fatalf("expected no arbitration while a trapped survivor remains and enemies are alive, got %+v", result)
	}
}

func TestArbitrate_PVELevelClearAdvancesOrFinishesCampaign(t *testing.T) {
	p1 := NewPlayer(1, Cell{1, 1})
	players := []*Player{p1}
	enemies := NewEnemyField() // empty: roster cleared

	grid := emptyGrid()
	levels := testLevels()

	result := Arbitrate(ModePVE, levels[0], false, grid, enemies, false, players)
	if result == nil || result.NextPhase != PhaseLevelClear || !result.AdvanceOnly {
		t.Fatalf("expected LEVEL_CLEAR advance-only, got %+v", result)
	}

	resultLast := Arbitrate(ModePVE, levels[len(levels)-1], true, grid, enemies, true, players)
	if resultLast == nil || resultLast.NextPhase != PhaseFinished || resultLast.Winner != WinCampaignComplete {
		t.Fatalf("expected campaign-complete finish on the last level, got %+v", resultLast)
	}
}

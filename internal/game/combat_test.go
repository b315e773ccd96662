package game

import (
	"testing"

	"github.com/bombarena/server/config"
)

func TestHurt_ShieldAbsorbsOneHit(t *testing.T) {
	p := NewPlayer(1, Cell{1, 1})
	p.HasShield = true

	hurt(p)

	st := p.GetState()
	if st.HasShield {
		t.Fatal("expected shield to be consumed")
	}
	if st.State != StateNormal {
		t.Fatal("expected a shielded hit to leave the player NORMAL")
	}
	if st.InvincibleTimerMS != config.HurtInvincibleMS {
		t.Fatalf("expected hurt invincibility window, got %v", st.InvincibleTimerMS)
	}
}

func TestHurt_NormalToTrappedToDead(t *testing.T) {
	p := NewPlayer(1, Cell{1, 1})

	hurt(p)
	if p.GetState().State != StateTrapped {
		t.Fatalf("expected NORMAL -> TRAPPED, got %v", p.GetState().State)
	}

	hurt(p)
	if p.GetState().State != StateDead {
		t.Fatalf("expected TRAPPED -> DEAD, got %v", p.GetState().State)
	}
}

func TestResolveCombat_ExplosionDamagesLivePlayer(t *testing.T) {
	p := NewPlayer(1, Cell{3, 3})
	bombs := NewBombField()
	enemies := NewEnemyField()
	players := []*Player{p}

	bombs.emitBlast(0, p.Cell())

	ResolveCombat(players, bombs, enemies, ModePVP, 16)

	if p.GetState().State == StateNormal {
		t.Fatal("expected the player standing in a blast to take damage")
	}
}

func TestResolveCombat_InvincibilitySkipsDamage(t *testing.T) {
	p := NewPlayer(1, Cell{3, 3})
	p.InvincibleTimerMS = 5000
	bombs := NewBombField()
	enemies := NewEnemyField()
	players := []*Player{p}

	bombs.emitBlast(0, p.Cell())
	ResolveCombat(players, bombs, enemies, ModePVP, 16)

	if p.GetState().State != StateNormal {
		t.Fatal("expected an invincible player to take no damage")
	}
}

func TestResolveCombat_RescueRestoresTrappedPlayer(t *testing.T) {
	rescuer := NewPlayer(1, Cell{3, 3})
	trapped := NewPlayer(2, Cell{3, 3}) // same cell, hitbox overlap
	trapped.State = StateTrapped
	trapped.TrappedTimerMS = 1000

	bombs := NewBombField()
	enemies := NewEnemyField()
	players := []*Player{rescuer, trapped}

	ResolveCombat(players, bombs, enemies, ModePVP, 16)

	st := trapped.GetState()
	if st.State != StateNormal {
		t.Fatalf("expected rescue to restore NORMAL, got %v", st.State)
	}
	if st.InvincibleTimerMS != config.RescueInvincibleMS {
		t.Fatalf("expected rescue invincibility window, got %v", st.InvincibleTimerMS)
	}
}

func TestResolveCombat_TrappedTimerExpiresToDead(t *testing.T) {
	p := NewPlayer(1, Cell{3, 3})
	p.State = StateTrapped
	p.TrappedTimerMS = 10

	bombs := NewBombField()
	enemies := NewEnemyField()
	players := []*Player{p}

	ResolveCombat(players, bombs, enemies, ModePVP, 16)

	if p.GetState().State != StateDead {
		t.Fatalf("expected trapped timer expiry to result in DEAD, got %v", p.GetState().State)
	}
}

func TestResolveCombat_PVEEnemyContactDamageOnlyInPVE(t *testing.T) {
	p := NewPlayer(1, Cell{3, 3})
	enemies := NewEnemyField()
	e := enemies.Spawn(EnemyBalloon, Cell{3, 3})
	bombs := NewBombField()
	players := []*Player{p}

	ResolveCombat(players, bombs, enemies, ModePVP, 16)
	if p.GetState().State != StateNormal {
		t.Fatal("expected no PVP contact damage from an enemy overlap")
	}

	ResolveCombat(players, bombs, enemies, ModePVE, 16)
	if p.GetState().State == StateNormal {
		t.Fatal("expected PVE contact damage from an overlapping live enemy")
	}
	_ = e
}

func TestResolveCombat_EnemyExplosionKillCreditsOwner(t *testing.T) {
	enemies := NewEnemyField()
	e := enemies.Spawn(EnemyBalloon, Cell{3, 3}) // HPDefault = 1
	bombs := NewBombField()
	bombs.emitBlast(1, e.Cell())

	owner := NewPlayer(1, Cell{9, 9})
	players := []*Player{owner}

	ResolveCombat(players, bombs, enemies, ModePVE, 16)

	if e.IsAlive() {
		t.Fatal("expected the single-HP enemy to die from the owned blast")
	}
	if owner.GetState().Score != 1 {
		t.Fatalf("expected the owning player's score to be credited, got %d", owner.GetState().Score)
	}
}

func TestResolveCombat_NeutralExplosionKillsWithoutCredit(t *testing.T) {
	enemies := NewEnemyField()
	e := enemies.Spawn(EnemyBalloon, Cell{3, 3})
	bombs := NewBombField()
	bombs.emitBlast(0, e.Cell()) // neutral owner, e.g. BOSS_MECHA's own bomb

	owner := NewPlayer(1, Cell{9, 9})
	players := []*Player{owner}

	ResolveCombat(players, bombs, enemies, ModePVE, 16)

	if e.IsAlive() {
		t.Fatal("expected the enemy to still die from a neutral blast")
	}
	if owner.GetState().Score != 0 {
		t.Fatalf("expected no score credit for a neutral-owned kill, got %d", owner.GetState().Score)
	}
}

package game

import "github.com/bombarena/server/config"

// hurt funnels every source of player damage through one escalation path
// (§4.4 Combat Resolver): shield absorbs one hit and grants brief
// invincibility; otherwise NORMAL -> TRAPPED (with its own timer and
// invincibility window), TRAPPED -> DEAD. A player already invincible is
// untouched by the caller before hurt is ever invoked.
func hurt(p *Player) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.HasShield {
		p.HasShield = false
		p.InvincibleTimerMS = config.HurtInvincibleMS
		return
	}

	switch p.State {
	case StateNormal:
		p.State = StateTrapped
		p.TrappedTimerMS = config.TrappedMS
		p.InvincibleTimerMS = config.HurtInvincibleMS
	case StateTrapped:
		p.State = StateDead
	}
}

// ResolveCombat runs the per-tick combat resolution order (§4.4):
// invincibility decrement (skip damage while active), explosion-cell
// damage to players, trapped-timer decrement to DEAD, PVE enemy-vs-
// explosion damage with score credit, PVE player-vs-enemy contact damage,
// and the rescue rule for an overlapping NORMAL+TRAPPED pair. Enemies
// brought to 0 HP stay in the field; the caller removes them afterwards
// with EnemyField.RemoveDead.
func ResolveCombat(players []*Player, bombs *BombField, enemies *EnemyField, mode GameMode, dtMS float64) {
	decrementInvincibility(players, dtMS)

	applyExplosionDamage(players, bombs)

	decrementTrapped(players, dtMS)

	if mode == ModePVE {
		creditEnemyExplosionKills(enemies, bombs, players)
		applyEnemyContactDamage(players, enemies)
	}

	applyRescue(players)
}

func decrementInvincibility(players []*Player, dtMS float64) {
	for _, p := range players {
		p.mu.Lock()
		if p.InvincibleTimerMS > 0 {
			p.InvincibleTimerMS -= dtMS
		}
		p.mu.Unlock()
	}
}

func decrementTrapped(players []*Player, dtMS float64) {
	for _, p := range players {
		p.mu.Lock()
		if p.State == StateTrapped {
			p.TrappedTimerMS -= dtMS
			if p.TrappedTimerMS <= 0 {
				p.State = StateDead
			}
		}
		p.mu.Unlock()
	}
}

func applyExplosionDamage(players []*Player, bombs *BombField) {
	for _, p := range players {
		if !p.IsLive() {
			continue
		}
		st := p.GetState()
		if st.InvincibleTimerMS > 0 {
			continue
		}
		if bombs.AnyAt(p.Cell()) {
			hurt(p)
		}
	}
}

// creditEnemyExplosionKills damages every non-invincible enemy standing on
// a live explosion cell, crediting the owning player's score on kill
// (§4.4 PVE: enemy death from a player's bomb awards score; an enemy
// caught in another enemy's blast, or a neutral blast, awards nothing).
func creditEnemyExplosionKills(enemies *EnemyField, bombs *BombField, players []*Player) {
	for _, e := range enemies.List() {
		if !e.IsAlive() || e.InvincibleTimerMS > 0 {
			continue
		}
		ownerID, hit := bombs.OwnerAt(e.Cell())
		if !hit {
			continue
		}
		e.HP--
		e.InvincibleTimerMS = config.EnemyHitInvincibleMS
		if e.HP > 0 || ownerID <= 0 {
			continue
		}
		for _, p := range players {
			if p.ID == ownerID {
				p.mu.Lock()
				p.Score++
				p.mu.Unlock()
			}
		}
	}
}

// applyEnemyContactDamage runs PVE-only enemy-vs-player contact damage: a
// live, non-invincible player overlapping a live enemy's cell is hurt.
func applyEnemyContactDamage(players []*Player, enemies *EnemyField) {
	for _, p := range players {
		if !p.IsLive() {
			continue
		}
		st := p.GetState()
		if st.InvincibleTimerMS > 0 {
			continue
		}
		pc := p.Cell()
		for _, e := range enemies.List() {
			if e.IsAlive() && e.Cell() == pc {
				hurt(p)
				break
			}
		}
	}
}

// applyRescue implements the rescue rule: a NORMAL player overlapping a
// TRAPPED player's cell frees them back to NORMAL with a fresh
// invincibility window, resetting their trapped timer (§4.4).
func applyRescue(players []*Player) {
	for _, rescuer := range players {
		if !rescuer.IsLive() {
			continue
		}
		rState := rescuer.GetState()
		if rState.State != StateNormal {
			continue
		}
		for _, trapped := range players {
			if trapped == rescuer {
				continue
			}
			tState := trapped.GetState()
			if tState.State != StateTrapped {
				continue
			}
			if trapped.Cell() != rescuer.Cell() {
				continue
			}
			trapped.mu.Lock()
			trapped.State = StateNormal
			trapped.TrappedTimerMS = 0
			trapped.InvincibleTimerMS = config.RescueInvincibleMS
			trapped.mu.Unlock()
		}
	}
}

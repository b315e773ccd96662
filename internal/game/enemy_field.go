package game

// EnemyField owns the live enemy list for one room.
type EnemyField struct {
	enemies []*Enemy
	nextID  int
}

func NewEnemyField() *EnemyField {
	return &EnemyField{}
}

func (f *EnemyField) List() []*Enemy { return f.enemies }

func (f *EnemyField) Count() int { return len(f.enemies) }

// Spawn creates and adds a new enemy of the given kind at cell c.
func (f *EnemyField) Spawn(kind EnemyKind, at Cell) *Enemy {
	f.nextID++
	e := NewEnemy(f.nextID, kind, at)
	f.enemies = append(f.enemies, e)
	return e
}

// RemoveDead drops every enemy with HP <= 0 and returns the removed
// enemies. Kill credit is not handled here; ResolveCombat awards it.
func (f *EnemyField) RemoveDead() []*Enemy {
	var dead []*Enemy
	remaining := f.enemies[:0]
	for _, e := range f.enemies {
		if e.IsAlive() {
			remaining = append(remaining, e)
		} else {
			dead = append(dead, e)
		}
	}
	f.enemies = remaining
	return dead
}

// Clear removes all enemies (used on level init).
func (f *EnemyField) Clear() {
	f.enemies = nil
}

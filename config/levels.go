package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LevelConfig describes one PVE level: wall density, enemy roster, and an
// optional boss kind (empty string means no boss). EnemyKind values are
// plain strings here (decoupled from internal/game's enum) so the roster
// can be loaded from YAML without importing the game package.
type LevelConfig struct {
	Name        string   `yaml:"name"`
	WallDensity float64  `yaml:"wallDensity"`
	Enemies     []string `yaml:"enemies"`
	Boss        string   `yaml:"boss,omitempty"`
}

// DefaultLevels is the compiled-in level roster (expansion, §4 Level
// roster). It is used whenever no LevelsPath override is configured or the
// override file cannot be parsed.
func DefaultLevels() []LevelConfig {
	return []LevelConfig{
		{Name: "level-1", WallDensity: 0.55, Enemies: []string{"BALLOON", "GHOST"}},
		{Name: "level-2", WallDensity: 0.60, Enemies: []string{"BALLOON", "GHOST", "BALLOON"}},
		{Name: "level-3", WallDensity: 0.65, Enemies: []string{"BALLOON", "MINION", "FROG"}},
		{Name: "level-4", WallDensity: 0.68, Enemies: []string{"GHOST", "MINION", "FROG", "FROG"}},
		{Name: "level-5", WallDensity: 0.70, Enemies: []string{"TANK", "MINION", "GHOST"}},
		{Name: "level-6", WallDensity: 0.72, Enemies: []string{"TANK"}, Boss: "BOSS_SLIME"},
		{Name: "level-7-final", WallDensity: 0.75, Enemies: []string{}, Boss: "BOSS_MECHA"},
	}
}

// LoadLevels reads a YAML level roster from path, falling back to
// DefaultLevels on any error (an invalid or missing override file must
// never prevent the server from starting — see §7 Error Handling).
func LoadLevels(path string) []LevelConfig {
	if path == "" {
		return DefaultLevels()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultLevels()
	}

	var levels []LevelConfig
	if err := yaml.Unmarshal(data, &levels); err != nil || len(levels) == 0 {
		return DefaultLevels()
	}

	return levels
}

// ValidateLevels checks that a level roster is well-formed.
func ValidateLevels(levels []LevelConfig) error {
	if len(levels) == 0 {
		return fmt.Errorf("level roster is empty")
	}
	for i, l := range levels {
		if l.WallDensity < 0 || l.WallDensity > 1 {
			return fmt.Errorf("level %d (%s): wallDensity %.2f out of range [0,1]", i, l.Name, l.WallDensity)
		}
	}
	return nil
}

package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
)

// SeedUserID owns operator-provided strategy configs. They are visible to
// tooling but never returned through the per-user API surface.
const SeedUserID = "system"

// SeedFile is the YAML shape of an operator strategies file.
type SeedFile struct {
	Strategies []SeedStrategy `yaml:"strategies"`
}

// SeedStrategy is one named config-driven strategy definition.
type SeedStrategy struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

// LoadSeedFile parses and validates a strategies YAML file. Every entry must
// be a valid config-driven strategy; one bad entry fails the whole file so
// operators notice typos at boot instead of at tick time.
func LoadSeedFile(path string) ([]SeedStrategy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("strategy seed %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Strategies))
	for i, s := range file.Strategies {
		if s.Name == "" {
			return nil, fmt.Errorf("strategy seed %s: entry %d has no name", path, i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("strategy seed %s: duplicate name %q", path, s.Name)
		}
		seen[s.Name] = true
		if _, err := seedConfigJSON(s); err != nil {
			return nil, fmt.Errorf("strategy seed %s: %q: %w", path, s.Name, err)
		}
	}
	return file.Strategies, nil
}

// SyncSeedToDB upserts seed strategies into the strategy_configs table under
// the system user, keyed by name so repeated boots update in place.
func SyncSeedToDB(ctx context.Context, database *db.Database, seeds []SeedStrategy) error {
	for _, s := range seeds {
		cfg, err := seedConfigJSON(s)
		if err != nil {
			return fmt.Errorf("seed %q: %w", s.Name, err)
		}
		row := db.StrategyConfig{
			ID:     "seed-" + s.Name,
			UserID: SeedUserID,
			Name:   s.Name,
			Config: cfg,
		}
		if err := database.UpsertStrategyConfig(ctx, row); err != nil {
			return fmt.Errorf("seed %q: %w", s.Name, err)
		}
	}
	return nil
}

func seedConfigJSON(s SeedStrategy) (json.RawMessage, error) {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return nil, err
	}
	if _, err := ParseParams("config_driven", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

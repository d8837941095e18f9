package rewards

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

//go:embed default_rewards.yaml
var defaultSeed []byte

type seedFile struct {
	Rewards []models.RewardInput `yaml:"rewards"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) ([]models.RewardInput, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rewards seed: %w", err)
	}
	for i, r := range f.Rewards {
		if r.Name == "" || r.Cost <= 0 {
			return nil, fmt.Errorf("rewards seed entry %d: name and positive cost required", i)
		}
		if r.Icon == "" {
			f.Rewards[i].Icon = IconGift
		}
	}
	return f.Rewards, nil
}

// LoadSeed reads the seed at path, or the built-in defaults when path is empty.
func LoadSeed(path string) ([]models.RewardInput, error) {
	if path == "" {
		return ParseSeed(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rewards seed: %w", err)
	}
	return ParseSeed(data)
}

// SeedIfEmpty inserts seed when the catalog has no rewards and reports how
// many were created.
func (c *Catalog) SeedIfEmpty(ctx context.Context, seed []models.RewardInput) (int, error) {
	n, err := c.repo.CountRewards(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rewards: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for i, in := range seed {
		if _, err := c.repo.CreateReward(ctx, in); err != nil {
			return i, fmt.Errorf("seed reward %q: %w", in.Name, err)
		}
	}
	c.invalidate(ctx)
	c.log.Infow("seeded rewards catalog", "count", len(seed))
	return len(seed), nil
}

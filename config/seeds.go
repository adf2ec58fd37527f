package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var seedsYAML []byte

type AchievementSeed struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Action       string `yaml:"action"`
	Target       int    `yaml:"target"`
	Timeframe    string `yaml:"timeframe"`
	RewardXP     int    `yaml:"reward_xp"`
	RewardPoints int    `yaml:"reward_points"`
}

type ActionValueSeed struct {
	ActionKey  string `yaml:"action_key"`
	XPValue    int    `yaml:"xp_value"`
	CloutValue int    `yaml:"clout_value"`
}

type EmojiRuleSeed struct {
	EmojiKey       string `yaml:"emoji_key"`
	Path           string `yaml:"path"`
	RequiredPathXP int    `yaml:"required_path_xp"`
}

type ReputationAchievementSeed struct {
	Key              string `yaml:"key"`
	Name             string `yaml:"name"`
	CriteriaType     string `yaml:"criteria_type"`
	CriteriaValue    int    `yaml:"criteria_value"`
	ReputationReward int    `yaml:"reputation_reward"`
}

type ShopItemSeed struct {
	Key   string `yaml:"key"`
	Price int64  `yaml:"price"`
}

// Seeds is the starter data shipped with the binary.
type Seeds struct {
	Achievements           []AchievementSeed           `yaml:"achievements"`
	ActionValues           []ActionValueSeed           `yaml:"action_values"`
	EmojiRules             []EmojiRuleSeed             `yaml:"emoji_rules"`
	ReputationAchievements []ReputationAchievementSeed `yaml:"reputation_achievements"`
	ShopItems              []ShopItemSeed              `yaml:"shop_items"`
}

// Prices maps shop item keys to their DGT price.
func (s *Seeds) Prices() map[string]int64 {
	out := make(map[string]int64, len(s.ShopItems))
	for _, item := range s.ShopItems {
		out[item.Key] = item.Price
	}
	return out
}

// DefaultSeeds parses the embedded seed document.
func DefaultSeeds() (*Seeds, error) {
	return ParseSeeds(seedsYAML)
}

func ParseSeeds(data []byte) (*Seeds, error) {
	var s Seeds
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}
	for _, a := range s.Achievements {
		if a.Target <= 0 {
			return nil, fmt.Errorf("seed achievement %q: target must be positive", a.Name)
		}
	}
	for _, item := range s.ShopItems {
		if item.Price <= 0 {
			return nil, fmt.Errorf("shop item %q: price must be positive", item.Key)
		}
	}
	return &s, nil
}

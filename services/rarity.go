package services

import (
	"strings"

	"degentalk/models"
)

const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
	RarityMythic    = "mythic"

	CategorySocial      = "social"
	CategoryContent     = "content"
	CategoryEconomy     = "economy"
	CategoryProgression = "progression"
	CategorySpecial     = "special"
)

// RarityOf bands the weighted reward score rewardXP + rewardPoints*2.
func RarityOf(rewardXP, rewardPoints int) string {
	score := rewardXP + rewardPoints*2
	switch {
	case score < 100:
		return RarityCommon
	case score < 200:
		return RarityRare
	case score < 500:
		return RarityEpic
	case score < 1000:
		return RarityLegendary
	default:
		return RarityMythic
	}
}

var categoryRules = []struct {
	needles  []string
	category string
}{
	{[]string{"tip", "like"}, CategorySocial},
	{[]string{"post", "thread"}, CategoryContent},
	{[]string{"dgt", "purchase"}, CategoryEconomy},
	{[]string{"level", "xp"}, CategoryProgression},
}

// CategoryOf classifies by the requirement's action string, first match wins.
func CategoryOf(action string) string {
	a := strings.ToLower(action)
	for _, rule := range categoryRules {
		for _, needle := range rule.needles {
			if strings.Contains(a, needle) {
				return rule.category
			}
		}
	}
	return CategorySpecial
}

func rarityOfDefinition(def *models.AchievementDefinition) string {
	return RarityOf(def.RewardXP, def.RewardPoints)
}

func categoryOfDefinition(def *models.AchievementDefinition) string {
	return CategoryOf(def.Requirement.Data().Action)
}

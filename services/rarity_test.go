package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRarityOf(t *testing.T) {
	cases := []struct {
		xp, points int
		want       string
	}{
		{0, 0, RarityCommon},
		{50, 10, RarityCommon},
		{100, 0, RarityRare},
		{100, 25, RarityRare},
		{300, 75, RarityEpic},
		{500, 100, RarityLegendary},
		{1000, 250, RarityMythic},
		{2000, 500, RarityMythic},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RarityOf(tc.xp, tc.points), "xp=%d points=%d", tc.xp, tc.points)
	}
}

func TestCategoryOf(t *testing.T) {
	cases := map[string]string{
		"tips_given":      CategorySocial,
		"likes_received":  CategorySocial,
		"posts_created":   CategoryContent,
		"threads_created": CategoryContent,
		"dgt_purchase":    CategoryEconomy,
		"purchases_made":  CategoryEconomy,
		"level_reached":   CategoryProgression,
		"xp_earned":       CategoryProgression,
		"moon_landings":   CategorySpecial,
	}
	for action, want := range cases {
		assert.Equal(t, want, CategoryOf(action), action)
	}
}

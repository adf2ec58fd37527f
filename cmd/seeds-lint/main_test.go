package main

import (
	"testing"

	"degentalk/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSeedsAreClean(t *testing.T) {
	seeds, err := config.DefaultSeeds()
	require.NoError(t, err)
	assert.Empty(t, lint(seeds))
}

func TestLintReportsProblems(t *testing.T) {
	seeds, err := config.ParseSeeds([]byte(`
achievements:
  - name: Dup
    action: posts_created
    target: 1
  - name: Dup
    action: moon_landings
    target: 1
    timeframe: yearly
action_values:
  - action_key: post_create
    xp_value: 10
emoji_rules:
  - emoji_key: rocket
    path: trading
    required_path_xp: 0
`))
	require.NoError(t, err)

	problems := lint(seeds)
	assert.Contains(t, problems, `achievements: duplicate name "Dup"`)
	assert.Contains(t, problems, `achievements: "Dup" uses unknown action "moon_landings"`)
	assert.Contains(t, problems, `achievements: "Dup" has unknown timeframe "yearly"`)
	assert.Contains(t, problems, `action_values: key "post_create" must be UPPER_SNAKE_CASE`)
	assert.Contains(t, problems, `emoji_rules: "rocket" needs a path and a positive required_path_xp`)
}

// seeds-lint checks a seed document before it is shipped or loaded with SEED_ON_START.
//
//	go run ./cmd/seeds-lint                  # the embedded config/seeds.yaml
//	go run ./cmd/seeds-lint -file seeds.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"

	"degentalk/config"
	"degentalk/services"
)

var actionKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

func main() {
	file := flag.String("file", "", "seed YAML to check (defaults to the embedded document)")
	flag.Parse()

	var (
		seeds *config.Seeds
		err   error
	)
	if *file == "" {
		seeds, err = config.DefaultSeeds()
	} else {
		var data []byte
		data, err = os.ReadFile(*file)
		if err == nil {
			seeds, err = config.ParseSeeds(data)
		}
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	problems := lint(seeds)
	for _, p := range problems {
		fmt.Println(p)
	}
	if len(problems) > 0 {
		os.Exit(1)
	}
	fmt.Printf("OK: %d achievements, %d action values, %d emoji rules, %d reputation achievements, %d shop items\n",
		len(seeds.Achievements), len(seeds.ActionValues), len(seeds.EmojiRules),
		len(seeds.ReputationAchievements), len(seeds.ShopItems))
}

func lint(s *config.Seeds) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	names := map[string]bool{}
	for _, a := range s.Achievements {
		if names[a.Name] {
			report("achievements: duplicate name %q", a.Name)
		}
		names[a.Name] = true
		if !services.IsKnownAction(a.Action) {
			report("achievements: %q uses unknown action %q", a.Name, a.Action)
		}
		switch a.Timeframe {
		case "", "daily", "weekly", "monthly", "lifetime":
		default:
			report("achievements: %q has unknown timeframe %q", a.Name, a.Timeframe)
		}
		if a.RewardXP < 0 || a.RewardPoints < 0 {
			report("achievements: %q has a negative reward", a.Name)
		}
	}

	keys := map[string]bool{}
	for _, v := range s.ActionValues {
		if !actionKeyRe.MatchString(v.ActionKey) {
			report("action_values: key %q must be UPPER_SNAKE_CASE", v.ActionKey)
		}
		if keys[v.ActionKey] {
			report("action_values: duplicate key %q", v.ActionKey)
		}
		keys[v.ActionKey] = true
		if v.XPValue < 0 || v.CloutValue < 0 {
			report("action_values: %q has a negative value", v.ActionKey)
		}
	}

	emojis := map[string]bool{}
	for _, r := range s.EmojiRules {
		if emojis[r.EmojiKey] {
			report("emoji_rules: duplicate emoji %q", r.EmojiKey)
		}
		emojis[r.EmojiKey] = true
		if r.Path == "" || r.RequiredPathXP <= 0 {
			report("emoji_rules: %q needs a path and a positive required_path_xp", r.EmojiKey)
		}
	}

	repKeys := map[string]bool{}
	for _, r := range s.ReputationAchievements {
		if repKeys[r.Key] {
			report("reputation_achievements: duplicate key %q", r.Key)
		}
		repKeys[r.Key] = true
		if r.CriteriaType == "" || r.CriteriaValue <= 0 || r.ReputationReward <= 0 {
			report("reputation_achievements: %q needs criteria_type, criteria_value and reputation_reward", r.Key)
		}
	}

	items := map[string]bool{}
	for _, item := range s.ShopItems {
		if items[item.Key] {
			report("shop_items: duplicate key %q", item.Key)
		}
		items[item.Key] = true
	}
	return problems
}

// achievements-import loads achievement definitions from a JSON array into the
// database configured by DATABASE_URL. Names that already exist are skipped.
//
//	go run ./cmd/achievements-import -file achievements.json [-dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"degentalk/config"
	"degentalk/database"
	"degentalk/logger"
	"degentalk/services"
)

func main() {
	file := flag.String("file", "", "JSON file holding an array of achievements")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *file == "" {
		log.Fatal("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("failed to read file", "file", *file, "error", err)
	}
	inputs, err := parseInputs(data)
	if err != nil {
		log.Fatal("failed to parse achievements", "error", err)
	}
	log.Info("achievements parsed", "count", len(inputs))
	if *dryRun {
		return
	}

	cfg, _ := config.Load()
	db, err := database.InitDB(cfg.DatabaseURL, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("database initialization failed", "error", err)
	}
	defer database.CloseDB()

	engine := services.NewEngine(db, log)
	created, skipped, err := importAchievements(context.Background(), engine.Achievements, inputs)
	if err != nil {
		log.Fatal("import failed", "created", created, "error", err)
	}
	log.Info("import completed", "created", created, "skipped", skipped)
}

func parseInputs(data []byte) ([]services.AchievementInput, error) {
	var inputs []services.AchievementInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %d: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("entry %d: duplicate name %q", i, name)
		}
		seen[name] = true
		if !services.IsKnownAction(in.Requirement.Action) {
			return nil, fmt.Errorf("entry %d (%s): unknown action %q", i, name, in.Requirement.Action)
		}
	}
	return inputs, nil
}

func importAchievements(ctx context.Context, svc *services.AchievementService, inputs []services.AchievementInput) (created, skipped int, err error) {
	existing, err := svc.ListAchievements(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, def := range existing {
		names[def.Name] = true
	}

	for _, in := range inputs {
		if names[strings.TrimSpace(in.Name)] {
			skipped++
			continue
		}
		if _, err := svc.CreateAchievement(ctx, in); err != nil {
			return created, skipped, fmt.Errorf("%s: %w", in.Name, err)
		}
		created++
	}
	return created, skipped, nil
}

// seed-chart creates the default chart of accounts for one business. Safe to re-run:
// existing accounts are brought in line with their codes and nothing is duplicated.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-chart --business-id <uuid>
//	DB_DRIVER=sqlite SQLITE_PATH=inventory.db go run ./cmd/seed-chart --business-id <uuid> --migrate
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/mmdatafocus/inventory_backend/workflow"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before seeding")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	cfg := config.Load()
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	eng := workflow.NewEngine(db, config.NewLogger(cfg.LogLevel), workflow.NewLocalLocker(), workflow.Options{})
	ctx := utils.SetBusinessIdInContext(context.Background(), strings.TrimSpace(*businessID))

	ids, err := eng.SeedDefaultChart(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed chart: %v\n", err)
		os.Exit(1)
	}

	codes := make([]string, 0, len(ids))
	for code := range ids {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("%s\t%d\n", code, ids[code])
	}
	fmt.Printf("Seeded %d accounts for business %s\n", len(ids), *businessID)
}

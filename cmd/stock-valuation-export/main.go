// stock-valuation-export writes the per-stage stock valuation workbook of one business.
//
// Usage:
//
//	go run ./cmd/stock-valuation-export --business-id <uuid> --out valuation.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/mmdatafocus/inventory_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id")
	out := flag.String("out", "stock-valuation.xlsx", "Output file, - for stdout")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	eng := workflow.NewEngine(db, logger, workflow.NewLocalLocker(), workflow.Options{})
	ctx := utils.SetBusinessIdInContext(context.Background(), strings.TrimSpace(*businessID))

	var w io.Writer = os.Stdout
	var f *os.File
	if *out != "-" {
		if f, err = os.Create(*out); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
			os.Exit(1)
		}
		w = f
	}

	err = eng.ExportStockValuation(ctx, w)
	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"business_id": *businessID,
			"out":         *out,
		}).Error("export failed: " + err.Error())
		os.Exit(1)
	}
	if f != nil {
		fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
	}
}

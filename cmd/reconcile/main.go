// reconcile runs one reconciliation pass for a business and prints the
// summary. Intended for operators and cron; the server keeps itself current
// via change notifications.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/reconcile -business <business-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"github.com/rajendraambati/leaf-trace-ai-sub002/workflow"
)

func main() {
	businessId := flag.String("business", "", "business id to reconcile")
	verbose := flag.Bool("verbose", false, "print per-order mismatches")
	flag.Parse()

	if *businessId == "" {
		fmt.Fprintln(os.Stderr, "-business is required")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessId)
	result, err := workflow.RunReconciliation(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}

	s := result.Stats
	fmt.Printf("total=%d matched=%d partial=%d missing_data=%d gst_compliant=%d audit_ready=%d\n",
		s.Total, s.Matched, s.Partial, s.MissingData, s.GstCompliantCount, s.AuditReadyCount)

	if *verbose {
		for _, rec := range result.Records {
			if len(rec.Mismatches) == 0 {
				continue
			}
			fmt.Printf("%s [%s]\n", rec.Order.PoNumber, rec.Status)
			for i, m := range rec.Mismatches {
				fmt.Printf("  - %s (%s)\n", m, rec.Suggestions[i])
			}
		}
	}
}

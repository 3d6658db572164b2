// Dry-run tool: fetches every opportunity and prints what a sync cycle
// would do, without writing anything back to the CRM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/loanops/commsync/internal/config"
	"github.com/loanops/commsync/internal/ghl"
	"github.com/loanops/commsync/internal/service"
	"github.com/shopspring/decimal"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall fetch timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := ghl.NewClient(&cfg.GHL)
	poller := service.NewPoller(client)

	opps, err := poller.FetchAll(ctx)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}

	rate := decimal.NewFromFloat(cfg.Sync.CommissionRate)
	plan, skip, invalid := 0, 0, 0

	fmt.Printf("--- Reconcile Plan (rate=%s, field=%s) ---\n", rate, cfg.GHL.LoanAmountFieldKey)
	for i := range opps {
		opp := &opps[i]
		loan, target, ok := service.Preview(opp, cfg.GHL.LoanAmountFieldKey, rate)
		if !ok {
			invalid++
			fmt.Printf("INVALID  %-28s %-30q no usable loan amount\n", opp.ID, opp.Name)
			continue
		}
		current := "-"
		if opp.MonetaryValue != nil {
			current = fmt.Sprintf("%.2f", *opp.MonetaryValue)
		}
		if service.NeedsUpdate(opp.MonetaryValue, target) {
			plan++
			fmt.Printf("UPDATE   %-28s %-30q loan=%s current=%s -> %s\n",
				opp.ID, opp.Name, loan, current, target)
		} else {
			skip++
			fmt.Printf("SKIP     %-28s %-30q value %s already correct\n", opp.ID, opp.Name, current)
		}
	}
	fmt.Printf("--- %d opportunities: %d to update, %d in sync, %d invalid ---\n",
		len(opps), plan, skip, invalid)
}

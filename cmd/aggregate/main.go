// Package main replays a fixture event log through the aggregation
// engine on in-memory storage and prints the resulting totals.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dex-hook-stats/internal/ingestion"
	"dex-hook-stats/internal/oracle"
	"dex-hook-stats/internal/oracle/static"
	"dex-hook-stats/internal/pipeline"
	"dex-hook-stats/internal/storage/memory"
)

func main() {
	fixturePath := flag.String("fixture", "", "Path to the fixture JSON file")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: aggregate -fixture <file.json>")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

	f, err := loadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixture: %v\n", err)
		os.Exit(1)
	}

	store := memory.NewEntityStore()
	derived, err := seedEntities(ctx, store, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding entities: %v\n", err)
		os.Exit(1)
	}

	ethPrice, _ := parseFixtureDec(f.EthPriceUSD, "eth_price_usd")
	orc := static.New(ethPrice)
	for token, d := range derived {
		orc.SetDerivedETH(token, d)
	}

	whitelist := make([]string, 0, len(derived))
	for token := range derived {
		whitelist = append(whitelist, token)
	}

	proc := pipeline.New(pipeline.Options{
		Store:  store,
		Oracle: orc,
		Pricing: oracle.PricingConfig{
			WhitelistTokens: whitelist,
		},
	})

	events, err := decodeEvents(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding events: %v\n", err)
		os.Exit(1)
	}

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:    ingestion.NewSliceSource(events),
		Processor: proc,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Aggregation Run ===")
	fmt.Printf("  Events processed: %d\n", result.Processed)
	fmt.Printf("  Events skipped:   %d\n", result.Skipped)

	global, err := store.GetGlobal(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading global totals: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("=== Global Totals ===")
	fmt.Printf("  Tx count:     %s\n", global.TxCount)
	fmt.Printf("  Volume USD:   %s\n", global.TotalVolumeUSD)
	fmt.Printf("  Fees USD:     %s\n", global.TotalFeesUSD)
	fmt.Printf("  TVL USD:      %s\n", global.TotalValueLockedUSD)
	fmt.Printf("  TVL ETH:      %s\n", global.TotalValueLockedETH)

	if *verbose {
		for _, fp := range f.Pools {
			pool, err := store.GetPool(ctx, fp.ID)
			if err != nil {
				continue
			}
			fmt.Printf("=== Pool %s ===\n", pool.ID)
			fmt.Printf("  Tx count:   %s\n", pool.TxCount)
			fmt.Printf("  Volume USD: %s\n", pool.VolumeUSD)
			fmt.Printf("  Fees USD:   %s\n", pool.FeesUSD)
			fmt.Printf("  TVL USD:    %s\n", pool.TotalValueLockedUSD)
			fmt.Printf("  Users:      %s\n", pool.UniqueUserCount)
			fmt.Printf("  LPs:        %s\n", pool.UniqueLiquidityProviderCount)
		}
	}
}

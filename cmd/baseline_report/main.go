// Command baseline_report loads a stored baseline specification, prints a
// human-readable summary, and reports its expiration status. It exits
// non-zero when the baseline is expired or fails fingerprint validation,
// so CI pipelines can gate on stale evidence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ahrav/go-baseline/infrastructure/baseline"
	"github.com/ahrav/go-baseline/internal/domain"
)

func main() {
	var (
		dir       = flag.String("dir", "baselines", "Directory containing stored baseline files")
		useCaseID = flag.String("use-case", "", "Use-case identifier of the baseline to load")
		file      = flag.String("file", "", "Explicit baseline file name (overrides -use-case derivation)")
	)
	flag.Parse()

	if *useCaseID == "" && *file == "" {
		log.Fatal("either -use-case or -file is required")
	}

	store := baseline.NewFileStore(*dir)

	var (
		spec *domain.Specification
		err  error
	)
	if *file != "" {
		spec, err = store.LoadFile(context.Background(), filepath.Join(*dir, *file))
	} else {
		spec, err = store.Load(context.Background(), *useCaseID)
	}
	if err != nil {
		log.Fatalf("Failed to load baseline: %v", err)
	}

	printReport(spec)

	if spec.Expiration.Evaluate(time.Now()) == domain.Expired {
		fmt.Println("\nBaseline is EXPIRED; re-run the experiment to refresh it.")
		os.Exit(1)
	}
}

func printReport(spec *domain.Specification) {
	fmt.Printf("Baseline for %s (schema %s)\n", spec.UseCaseID, spec.SchemaVersion)
	fmt.Printf("- Generated: %s\n", spec.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("- Samples: %d executed of %d planned\n", spec.Execution.SamplesExecuted, spec.Execution.SamplesPlanned)
	fmt.Printf("- Termination: %s", spec.Execution.TerminationReason)
	if spec.Execution.TerminationDetails != "" {
		fmt.Printf(" (%s)", spec.Execution.TerminationDetails)
	}
	fmt.Println()

	fmt.Printf("- Observed success rate: %.4f\n", spec.Statistics.Observed)
	fmt.Printf("- Standard error: %.4f\n", spec.Statistics.StandardError)
	fmt.Printf("- 95%% CI: [%.4f, %.4f]\n", spec.Statistics.CILower, spec.Statistics.CIUpper)
	fmt.Printf("- Required minimum pass rate: %.4f\n", spec.Requirements.MinPassRate)

	if len(spec.Statistics.FailureDistribution) > 0 {
		fmt.Println("- Failure distribution:")
		for _, fc := range spec.Statistics.FailureDistribution {
			fmt.Printf("    %s: %d\n", fc.Category, fc.Count)
		}
	}
	if len(spec.Statistics.CriteriaPassRates) > 0 {
		fmt.Println("- Criteria pass rates:")
		for _, cr := range spec.Statistics.CriteriaPassRates {
			fmt.Printf("    %s: %d/%d\n", cr.Name, cr.Passed, cr.Evaluated)
		}
	}

	fmt.Printf("- Cost: %.1f ms/sample avg, %d tokens total\n",
		spec.Cost.AvgTimePerSampleMs, spec.Cost.TotalTokens)

	now := time.Now()
	state := spec.Expiration.Evaluate(now)
	fmt.Printf("- Expiration: %s", state)
	if state != domain.NoExpiration {
		fmt.Printf(" (%s remaining)", spec.Expiration.Remaining(now).Round(time.Hour))
	}
	fmt.Println()

	if len(spec.Footprint) > 0 {
		fmt.Println("- Footprint:")
		for k, v := range spec.Footprint {
			fmt.Printf("    %s: %s\n", k, v)
		}
	}
}

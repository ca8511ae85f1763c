package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/optimizer"
)

var (
	planSource      catalogSource
	planIterations  int
	planTimeout     time.Duration
	planWorkers     int
	planStrategy    string
	planTopK        int
	planSeed        int64
	planExploration float64
	planOrder       string
	planOutput      string
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan [catalog.json|catalog.xlsx|url]",
	Short: "Find the cheapest groupings and coupon assignments for a cart",
	Long: `Search for the cheapest way to split a cart into checkout groups and apply
coupons. Flags override the "planner" section of the config file. The search
stops at whichever of --iterations and --timeout is reached first; Ctrl-C stops
early and prints the best plans found so far.`,
	Example: `  coupon-planner plan ./cart.json
  coupon-planner plan --items ./cart.csv --coupons ./coupons.json --iterations 5000
  coupon-planner plan ./cart.xlsx --strategy uniform --top-k 3 --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	f := planCmd.Flags()
	f.StringVar(&planSource.items, "items", "", "cart items CSV file")
	f.StringVar(&planSource.coupons, "coupons", "", "coupons JSON file (used with --items)")
	f.StringVar(&planSource.encoding, "encoding", "auto", "items CSV encoding: auto, utf-8, windows-1250, iso-8859-2, gbk, gb18030")
	f.StringVar(&planSource.delimiter, "delimiter", "", "items CSV delimiter (default: detect)")
	f.IntVar(&planIterations, "iterations", 0, "iteration budget (0 = time budget only)")
	f.DurationVar(&planTimeout, "timeout", 0, "time budget (0 = iteration budget only)")
	f.IntVar(&planWorkers, "workers", 1, "concurrent search workers (1 = reproducible)")
	f.StringVar(&planStrategy, "strategy", "", "rollout strategy: uniform or greedy")
	f.IntVar(&planTopK, "top-k", 0, "number of plans to report")
	f.Int64Var(&planSeed, "seed", 0, "random seed")
	f.Float64Var(&planExploration, "exploration", 0, "UCB exploration constant")
	f.StringVar(&planOrder, "evaluation-order", "", "flat_first or percent_first")
	f.StringVar(&planOutput, "output", "table", "Output format: table or json")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planOutput != "table" && planOutput != "json" {
		return fmt.Errorf("invalid output format %q (want table or json)", planOutput)
	}
	pc, err := planConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := planSource.load(ctx, args)
	if err != nil {
		return err
	}

	engine, err := optimizer.NewEngine(cat, pc, optimizer.WithLogger(logger))
	if err != nil {
		return err
	}

	res, err := engine.Plan(ctx)
	if err != nil {
		return err
	}

	if planOutput == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printPlans(cmd.OutOrStdout(), cat, res)
	return nil
}

// planConfig starts from the configured planner section and applies the
// flags the user set explicitly.
func planConfig(cmd *cobra.Command) (optimizer.Config, error) {
	pc := cfg.Planner
	f := cmd.Flags()

	if f.Changed("iterations") || f.Changed("timeout") {
		// an explicit budget replaces both configured budgets
		pc.Iterations, pc.TimeBudget = planIterations, planTimeout
	}
	if f.Changed("workers") {
		pc.Workers = planWorkers
	}
	if f.Changed("strategy") {
		pc.Strategy = optimizer.Strategy(planStrategy)
	}
	if f.Changed("top-k") {
		pc.TopK = planTopK
	}
	if f.Changed("seed") {
		pc.Seed = planSeed
	}
	if f.Changed("exploration") {
		pc.Exploration = planExploration
	}
	if f.Changed("evaluation-order") {
		pc.EvaluationOrder = optimizer.EvaluationOrder(planOrder)
	}
	if err := pc.Validate(); err != nil {
		return optimizer.Config{}, err
	}
	return pc, nil
}

func printPlans(out io.Writer, cat *catalog.Catalog, res *optimizer.Result) {
	fmt.Fprintf(out, "Run %s: %d iterations, %d nodes, %s, stopped on %s\n",
		res.RunID, res.Iterations, res.Nodes, res.Duration.Round(time.Millisecond), res.StopReason)
	fmt.Fprintf(out, "Baseline %s across %d items in %d shops\n", res.Baseline, len(cat.Items()), len(cat.Shops()))

	if len(res.Plans) == 0 {
		fmt.Fprintln(out, "\nNo complete plan found; raise --iterations or --timeout.")
		return
	}

	for _, p := range res.Plans {
		fmt.Fprintf(out, "\nPlan #%d: total %s (save %s)\n", p.Rank, p.Cost, p.Savings)
		fmt.Fprintln(out, strings.Repeat("-", 60))

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Group\tShops\tItems\tSubtotal\tCoupons\tFinal\n")
		for i, g := range p.Groups {
			coupons := "-"
			if len(g.CouponIDs) > 0 {
				coupons = strings.Join(g.CouponIDs, ", ")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				i+1, strings.Join(g.Shops, ", "), strings.Join(g.ItemIDs, ", "), g.Subtotal, coupons, g.Final)
		}
		w.Flush()
	}
}

// Command lookahead solves small bundled MILPs with the lookahead branching
// rule, as a smoke test and usage example.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	yaml "gopkg.in/yaml.v2"

	"github.com/go-opt/lookahead"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "lookahead",
		Short:        "lookahead branching demo solver",
		SilenceUsage: true,
	}
	root.AddCommand(solveCommand())
	return root
}

func solveCommand() *cobra.Command {
	var (
		configPath string
		problem    string
		verbose    bool
		metrics    bool
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "solve a bundled sample problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			opts := []lookahead.SolverOption{lookahead.WithSolverLogger(log)}
			reg := prometheus.NewRegistry()
			if metrics {
				opts = append(opts, lookahead.WithSolverObserver(lookahead.NewMetricsObserver(reg)))
			}

			solver, err := lookahead.NewSolver(cfg, opts...)
			if err != nil {
				return err
			}

			prob, err := sampleProblem(problem)
			if err != nil {
				return err
			}

			sol, err := solver.Solve(prob)
			if err != nil {
				return err
			}

			fmt.Printf("outcome: %s\n", sol.Outcome)
			if sol.X != nil {
				fmt.Printf("z: %g\n", sol.Z)
				fmt.Printf("x: %v\n", sol.X)
			}
			fmt.Printf("nodes: %d, LPs: %d\n", sol.Nodes, sol.LPs)

			if metrics {
				printMetrics(reg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "yaml config file for the rule parameters")
	cmd.Flags().StringVar(&problem, "problem", "knapsack", "sample problem: knapsack or cover")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print engine counters after the solve")

	cmd.Flags().Int("depth", 0, "override recursion depth")
	cmd.Flags().Int("max-candidates", 0, "override abbreviated candidate count")
	cmd.Flags().Bool("full", false, "disable abbreviation, evaluate all candidates")

	return cmd
}

func loadConfig(path string, flags *pflag.FlagSet) (lookahead.Config, error) {
	cfg := lookahead.DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "reading config file")
		}
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parsing config file")
		}
	}
	if v, _ := flags.GetInt("depth"); v > 0 {
		cfg.RecursionDepth = v
	}
	if v, _ := flags.GetInt("max-candidates"); v > 0 {
		cfg.MaxCandidates = v
	}
	if full, _ := flags.GetBool("full"); full {
		cfg.Abbreviated = false
	}
	return cfg, nil
}

// sampleProblem builds one of the bundled models. Both are minimization
// problems with known optima, small enough to read in full.
func sampleProblem(name string) (*lookahead.Problem, error) {
	switch name {
	case "knapsack":
		// pick items maximizing value 8,11,6,4 under weight 5,7,4,3 ≤ 14;
		// maximization expressed as minimizing the negated values
		p := lookahead.NewProblem()
		x1 := p.AddBinary("x1", -8)
		x2 := p.AddBinary("x2", -11)
		x3 := p.AddBinary("x3", -6)
		x4 := p.AddBinary("x4", -4)
		p.AddInequality([]lookahead.Term{
			lookahead.Expr(5, x1),
			lookahead.Expr(7, x2),
			lookahead.Expr(4, x3),
			lookahead.Expr(3, x4),
		}, 14)
		return p, nil
	case "cover":
		// cheapest selection covering three elements
		p := lookahead.NewProblem()
		a := p.AddBinary("a", 3)
		b := p.AddBinary("b", 5)
		c := p.AddBinary("c", 4)
		p.AddInequality([]lookahead.Term{lookahead.Expr(-1, a), lookahead.Expr(-1, b)}, -1)
		p.AddInequality([]lookahead.Term{lookahead.Expr(-1, b), lookahead.Expr(-1, c)}, -1)
		p.AddInequality([]lookahead.Term{lookahead.Expr(-1, a), lookahead.Expr(-1, c)}, -1)
		return p, nil
	default:
		return nil, errors.Errorf("unknown sample problem %q", name)
	}
}

func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gathering metrics:", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, l := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", l.GetName(), l.GetValue())
			}
			fmt.Printf("%s%s: %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
		}
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"molecule/internal/bootstrap"
	"molecule/internal/evaluator"
	"molecule/internal/selection"
	"molecule/pkg/domain"
)

type checkOptions struct {
	seedPath  string
	selectIDs []uint
	mode      string
	asJSON    bool
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check <address>...",
		Short: "Evaluate addresses against the policies in a seed file",
		Long: `Check loads the seed into an in-memory registry, selects the policies
given by --select (or the seed's own selection) and prints each decision with
its per-policy trace. The command fails when any address is rejected.`,
		Example: `  moleculectl check --seed seed.yaml 0x1111111111111111111111111111111111111111
  moleculectl check --seed seed.yaml --select 2,1 --mode any 0xAbc...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.seedPath, "seed", "", "seed file (required)")
	cmd.Flags().UintSliceVar(&opts.selectIDs, "select", nil, "policy ids to select, in order")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "aggregation: all or any (default from seed, then all)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON lines")
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions, args []string) error {
	addrs, err := domain.ParseAddresses(args)
	if err != nil {
		return err
	}
	seed, err := bootstrap.Load(opts.seedPath)
	if err != nil {
		return err
	}

	mode := opts.mode
	if mode == "" {
		mode = seed.Aggregation
	}
	aggregator, err := evaluator.ParseAggregator(mode)
	if err != nil {
		return err
	}

	eng := newEngine(cmd.Context())
	if _, err := eng.apply(seed); err != nil {
		return err
	}

	ids := seed.SelectionIDs()
	if cmd.Flags().Changed("select") {
		ids = make([]domain.PolicyID, 0, len(opts.selectIDs))
		for _, v := range opts.selectIDs {
			ids = append(ids, domain.PolicyID(v))
		}
	}
	sel, err := selection.Select(eng.ctx, eng.registry, ids)
	if err != nil {
		return err
	}

	eval := evaluator.New(eng.registry, evaluator.WithAggregator(aggregator))
	out := cmd.OutOrStdout()
	rejected := 0
	for _, addr := range addrs {
		result, err := eval.Evaluate(eng.ctx, sel, addr)
		if err != nil {
			return err
		}
		if !result.Passed {
			rejected++
		}
		if opts.asJSON {
			if err := json.NewEncoder(out).Encode(result); err != nil {
				return err
			}
			continue
		}
		printResult(out, result)
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d addresses rejected", rejected, len(addrs))
	}
	return nil
}

func printResult(w io.Writer, r *evaluator.Result) {
	verdict := "PASS"
	if !r.Passed {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", r.Address.Hex(), verdict, r.Aggregation)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range r.Policies {
		kind := "deny"
		if p.AllowList {
			kind = "allow"
		}
		if p.ReverseLogic {
			kind += ",reversed"
		}
		verdict := "-"
		if p.Status == evaluator.PolicyPassed || p.Status == evaluator.PolicyFailed {
			verdict = strconv.FormatBool(p.Verdict)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\tverdict=%s\t%s\n",
			p.ID, quoteName(p.Name), kind, verdict, p.Status)
	}
	_ = tw.Flush()
}

func quoteName(name string) string {
	if name == "" {
		return `""`
	}
	return strings.ReplaceAll(name, "\t", " ")
}

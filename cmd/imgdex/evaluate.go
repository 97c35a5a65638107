package main

import (
	"fmt"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/imgdex/internal/transport/chi"
)

func NewEvaluateCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Report the average result count per score threshold",
		Long: `Run every query against the index and report, for each threshold,
how many images pass on average. Use it to calibrate the search threshold.`,
		Args: cobra.NoArgs,
		RunE: withApp(open, runEvaluate),
	}

	cmd.Flags().StringArrayP("query", "q", nil, "Query text (repeatable)")
	cmd.Flags().Float64Slice("thresholds", nil, "Thresholds to evaluate (default index.evaluate_thresholds)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func runEvaluate(cmd *cobra.Command, a *app, _ []string) error {
	queries, _ := cmd.Flags().GetStringArray("query")
	thresholds := a.cfg.Index.EvaluateThresholds
	if cmd.Flags().Changed("thresholds") {
		thresholds, _ = cmd.Flags().GetFloat64Slice("thresholds")
	}

	if err := a.loadIndex(cmd.Context(), false); err != nil {
		return err
	}

	stats, err := a.index.Evaluate(cmd.Context(), queries, thresholds)
	if err != nil {
		return err
	}

	if wantJSON(cmd) {
		items := make([]chiTransport.ThresholdStatItem, len(stats))
		for i, st := range stats {
			items[i] = chiTransport.ThresholdStatItem{
				Threshold:      chiTransport.Float(st.Threshold),
				TotalResults:   st.TotalResults,
				AverageResults: st.AverageResults,
			}
		}
		return writeJSON(cmd.OutOrStdout(), chiTransport.EvaluateResponse{Queries: len(queries), Items: items})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d queries against %d images\n", len(queries), a.index.Info().Records)
	for _, st := range stats {
		fmt.Fprintf(out, "threshold %-6g  average %.2f results/query  (total %d)\n",
			st.Threshold, st.AverageResults, st.TotalResults)
	}
	return nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	chiTransport "github.com/kailas-cloud/imgdex/internal/transport/chi"
)

func NewSearchCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index with a text query",
		Long: `Rank indexed images by MaxSim score against the query. Only images
scoring at or above the threshold are returned; -t -inf disables it.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(open, runSearch),
	}

	cmd.Flags().IntP("top-k", "k", 0, "Maximum results (default index.default_top_k)")
	cmd.Flags().StringP("threshold", "t", "", "Minimum score (default index.default_score_threshold)")
	return cmd
}

func runSearch(cmd *cobra.Command, a *app, args []string) error {
	topK := a.cfg.Index.DefaultTopK
	if cmd.Flags().Changed("top-k") {
		topK, _ = cmd.Flags().GetInt("top-k")
	}
	threshold := a.cfg.Index.ScoreThreshold()
	if cmd.Flags().Changed("threshold") {
		raw, _ := cmd.Flags().GetString("threshold")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid --threshold %q: %w", raw, err)
		}
		threshold = v
	}

	req, err := request.New(args[0], topK, threshold)
	if err != nil {
		return err
	}
	if err := a.loadIndex(cmd.Context(), false); err != nil {
		return err
	}

	results, err := a.index.Search(cmd.Context(), &req)
	if err != nil {
		return err
	}

	if wantJSON(cmd) {
		items := make([]chiTransport.SearchResultItem, len(results))
		for i := range results {
			items[i] = chiTransport.SearchResultItem{
				ID:       results[i].ID(),
				Path:     results[i].SourcePath(),
				Filename: results[i].Filename(),
				Score:    chiTransport.Float(results[i].Score()),
			}
		}
		return writeJSON(cmd.OutOrStdout(), chiTransport.SearchResponse{Items: items, Total: len(items)})
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no images matched")
		return nil
	}
	for i := range results {
		fmt.Fprintf(out, "%.4f  %s\n", results[i].Score(), results[i].SourcePath())
	}
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/imgdex/internal/transport/chi"
)

func NewInfoCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the stored index",
		Args:  cobra.NoArgs,
		RunE:  withApp(open, runInfo),
	}
}

func runInfo(cmd *cobra.Command, a *app, _ []string) error {
	if err := a.loadIndex(cmd.Context(), false); err != nil {
		return err
	}
	info := a.index.Info()

	if wantJSON(cmd) {
		resp := chiTransport.IndexInfoResponse{
			Records:   info.Records,
			Dimension: info.Dimension,
			Model:     info.Model,
		}
		if !info.LoadedAt.IsZero() {
			t := info.LoadedAt.UTC()
			resp.LoadedAt = &t
		}
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend:   %s\n", a.cfg.Index.Backend)
	fmt.Fprintf(out, "records:   %d\n", info.Records)
	fmt.Fprintf(out, "dimension: %d\n", info.Dimension)
	fmt.Fprintf(out, "model:     %s\n", info.Model)
	if !info.LoadedAt.IsZero() {
		fmt.Fprintf(out, "loaded:    %s\n", info.LoadedAt.Format(time.RFC3339))
	}
	return nil
}

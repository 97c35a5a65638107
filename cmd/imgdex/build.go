package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/imgdex/internal/transport/chi"
)

func NewBuildCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Index a directory of images",
		Long: `Embed every .jpg, .jpeg, .png, .bmp and .tiff file directly inside dir
(default index.image_dir) and save the index. Images that fail to embed are
skipped and reported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(open, runBuild),
	}

	cmd.Flags().Bool("no-save", false, "Build without persisting the index")
	return cmd
}

func runBuild(cmd *cobra.Command, a *app, args []string) error {
	dir := a.cfg.Index.ImageDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no image directory: pass one or set index.image_dir")
	}
	noSave, _ := cmd.Flags().GetBool("no-save")

	report, err := a.index.Build(cmd.Context(), dir, !noSave)
	if err != nil {
		return err
	}

	if wantJSON(cmd) {
		failures := make([]chiTransport.BuildFailure, len(report.Failures))
		for i, f := range report.Failures {
			failures[i] = chiTransport.BuildFailure{Path: f.Path, Error: f.Err.Error()}
		}
		return writeJSON(cmd.OutOrStdout(), chiTransport.BuildIndexResponse{
			Scanned:    report.Scanned,
			Indexed:    report.Indexed,
			Skipped:    report.Skipped,
			Failures:   failures,
			DurationMs: report.Duration.Milliseconds(),
			Persisted:  !noSave,
			Index: chiTransport.IndexInfoResponse{
				Records:   report.Indexed,
				Dimension: a.index.Info().Dimension,
				Model:     a.index.Info().Model,
			},
		})
	}

	out := cmd.OutOrStdout()
	for _, f := range report.Failures {
		fmt.Fprintf(out, "skipped %s: %v\n", f.Path, f.Err)
	}
	fmt.Fprintf(out, "indexed %d of %d images in %s (%d skipped)\n",
		report.Indexed, report.Scanned, report.Duration.Round(time.Millisecond), report.Skipped)
	if noSave {
		fmt.Fprintln(out, "index not saved (--no-save)")
	}
	return nil
}

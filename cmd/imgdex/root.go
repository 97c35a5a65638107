package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewRootCmd(version string, open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imgdex",
		Short: "Late-interaction image retrieval",
		Long: `Index a directory of images with a multi-vector embedding model and
search it with free-text queries scored by MaxSim.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	if open != nil {
		addSubcommands(rootCmd, open)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (default config/<env>.yaml)")
	cmd.PersistentFlags().String("env", "", "Environment name (default $ENV or local)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

func addSubcommands(root *cobra.Command, open opener) {
	root.AddCommand(
		NewBuildCmd(open),
		NewSearchCmd(open),
		NewEvaluateCmd(open),
		NewInfoCmd(open),
		NewServeCmd(open),
	)
}

// withApp opens the app from the persistent flags, runs fn and closes the app.
func withApp(open opener, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		env, _ := cmd.Flags().GetString("env")

		a, err := open(cmd.Context(), appOptions{configPath: configPath, env: env})
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(cmd, a, args)
	}
}

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// Command xlstool compiles spreadsheet-backed schema messages into a
// binary envelope and a nested Lua table literal (spec.md §6).
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"xlstool/internal/config"
	"xlstool/internal/driver"
	"xlstool/internal/util"
)

var (
	codepage string
	outDir   string
)

var rootCmd = &cobra.Command{
	Use:   "xlstool <schema_path>",
	Short: "Compile spreadsheet data into a binary envelope and a Lua table literal from a .proto schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath := args[0]

		cfgPath := config.ConfigPathFor(schemaPath)
		cfg, err := config.Load(cfgPath)
		if err != nil {
			util.LogError(util.Logger, util.WrapError(util.KindIO, err, "load config", slog.String("path", cfgPath)))
			os.Exit(-1)
		}
		if codepage != "" {
			cfg.Codepage = codepage
		}
		if outDir != "" {
			cfg.OutDir = outDir
		}

		results, err := driver.Run(cmd.Context(), schemaPath, cfg)
		if err != nil {
			util.LogError(util.Logger, err)
			os.Exit(-1)
		}
		if len(results) == 0 {
			util.Logger.Error("no message type produced output", "schema", schemaPath)
			os.Exit(-2)
		}

		failed := 0
		for _, r := range results {
			if err := r.Write(); err != nil {
				util.LogError(util.Logger, err)
				failed++
			}
		}
		if failed > 0 {
			os.Exit(-3)
		}

		slog.Info("export complete", "schema", schemaPath, "messages", len(results))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&codepage, "codepage", "", "source workbook codepage (default utf-8)")
	rootCmd.Flags().StringVar(&outDir, "out-dir", "", "output directory for .bytes/.lua artifacts")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(-1)
	}
}

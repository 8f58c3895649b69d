package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"union-ledger/internal/config"
	"union-ledger/internal/importer"

	"github.com/spf13/cobra"
)

// reportFlags are shared by every command that reads a report.
type reportFlags struct {
	period       string
	dateFallback bool
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledger-import",
		Short:         "Import union club reports into the ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(importCommand(), inspectCommand())
	return root
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.period, "period", "", "Period date (YYYY-MM-DD) overriding the report's date cell")
	cmd.Flags().BoolVar(&f.dateFallback, "allow-date-fallback", false, "Use today when the report carries no readable date")
}

func (f *reportFlags) options(cfg config.ImportConfig, source string) (importer.Options, error) {
	opts := importer.Options{AllowDateFallback: f.dateFallback, SourceLabel: source}
	if f.period == "" {
		return opts, nil
	}
	p, err := time.ParseInLocation("2006-01-02", f.period, cfg.Location())
	if err != nil {
		return opts, fmt.Errorf("invalid --period %q: %w", f.period, err)
	}
	opts.PeriodOverride = &p
	return opts, nil
}

func readReport(path string) ([]byte, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return doc, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
